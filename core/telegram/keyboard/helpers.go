// Package keyboard builds inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// CancelUnique is the callback key of the shared cancel button.
const CancelUnique = "cancel"

const defaultCancelButtonText = "❌ Cancel"

// InlineBtn is one inline button: a callback button when URL is empty,
// a link button otherwise.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

// Btn is a callback button.
func Btn(text, unique, data string) InlineBtn {
	return InlineBtn{Text: text, Unique: unique, Data: data}
}

// URLBtn is a link button.
func URLBtn(text, url string) InlineBtn {
	return InlineBtn{Text: text, URL: url}
}

// Cancel is the shared cancel button.
func Cancel() InlineBtn {
	return Btn(defaultCancelButtonText, CancelUnique, "")
}

// Row groups buttons shown side by side.
func Row(btns ...InlineBtn) []InlineBtn { return btns }

// Inline builds a keyboard from rows. Empty rows are skipped.
func Inline(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				r = append(r, *markup.URL(b.Text, b.URL).Inline())
				continue
			}
			r = append(r, *markup.Data(b.Text, b.Unique, b.Data).Inline())
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// Column builds a keyboard with one button per row.
func Column(btns ...InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, len(btns))
	for i, b := range btns {
		rows[i] = []InlineBtn{b}
	}
	return Inline(rows...)
}

// SingleCancel is a keyboard holding only the cancel button.
func SingleCancel() *tele.ReplyMarkup {
	return Column(Cancel())
}

// RemoveKeyboard hides a reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}
