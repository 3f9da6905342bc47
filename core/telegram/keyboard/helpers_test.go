package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineMixesCallbackAndURLButtons(t *testing.T) {
	m := Inline(
		Row(Btn("Accept", "sub_accept", "7"), Btn("Reject", "sub_reject", "7")),
		nil,
		Row(URLBtn("Link", "https://t.me/bot?start=post_1")),
	)
	require.Len(t, m.InlineKeyboard, 2)
	require.Len(t, m.InlineKeyboard[0], 2)

	accept := m.InlineKeyboard[0][0]
	assert.Equal(t, "sub_accept", accept.Unique)
	assert.Equal(t, "7", accept.Data)

	link := m.InlineKeyboard[1][0]
	assert.Equal(t, "https://t.me/bot?start=post_1", link.URL)
	assert.Empty(t, link.Data)
}

func TestColumnAndCancel(t *testing.T) {
	m := Column(Btn("A", "a", ""), Cancel())
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, CancelUnique, m.InlineKeyboard[1][0].Unique)
	assert.Len(t, SingleCancel().InlineKeyboard, 1)
}
