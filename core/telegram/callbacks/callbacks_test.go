package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type cbContext struct {
	tele.Context
	cb *tele.Callback
}

func (c cbContext) Callback() *tele.Callback { return c.cb }

func TestParseRawAndRoutedData(t *testing.T) {
	u, p := ParseData("\fsub_accept|42")
	assert.Equal(t, "sub_accept", u)
	assert.Equal(t, "42", p)

	u, p = ParseData("\fcancel")
	assert.Equal(t, "cancel", u)
	assert.Empty(t, p)

	u, p = Parse(&tele.Callback{Unique: "offer_anon", Data: "1:5"})
	assert.Equal(t, "offer_anon", u)
	assert.Equal(t, "1:5", p)

	u, p = Parse(nil)
	assert.Empty(t, u)
	assert.Empty(t, p)
}

func TestPayloadIDs(t *testing.T) {
	c := cbContext{cb: &tele.Callback{Data: "\fmod_remove|" + Join(3, 77)}}
	assert.Equal(t, "mod_remove", Key(c))

	ids, err := PayloadInt64s(c, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 77}, ids)

	_, err = PayloadInt64s(c, 3)
	assert.Error(t, err)

	_, err = PayloadInt64(c)
	assert.Error(t, err)

	id, anon, err := PayloadIDFlag(cbContext{cb: &tele.Callback{Unique: "offer_anon", Data: "9:1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.True(t, anon)
}
