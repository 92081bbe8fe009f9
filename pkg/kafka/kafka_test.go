package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "fuzzy", Value: map[string]int{"hits": 2}},
		{Key: "exact", Value: "cat"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "fuzzy", string(msgs[0].Key))
	assert.JSONEq(t, `{"hits":2}`, string(msgs[0].Value))
	assert.Equal(t, `"cat"`, string(msgs[1].Value))
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	type event struct {
		Query string `json:"query"`
	}
	got, err := DecodeJSON[event]([]byte(`{"query":"cat"}`))
	require.NoError(t, err)
	assert.Equal(t, "cat", got.Query)

	_, err = DecodeJSON[event]([]byte(`{`))
	assert.Error(t, err)
}
