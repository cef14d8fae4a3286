package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/bookdesk/internal/api"
	"github.com/blackwell-systems/bookdesk/internal/entity"
)

const items = `[{"_id":"1","title":"A"},{"_id":"2","title":"B"}]`

func records(t *testing.T, body string, keys ...string) []entity.Record {
	t.Helper()
	env, err := api.Decode([]byte(body))
	require.NoError(t, err)
	list, err := env.Records(keys...)
	require.NoError(t, err)
	return list
}

func TestRecords_SameAcrossEnvelopes(t *testing.T) {
	want := records(t, items)
	require.Len(t, want, 2)

	for name, body := range map[string]string{
		"status":         `{"status":true,"data":` + items + `}`,
		"success":        `{"success":true,"data":` + items + `}`,
		"nested":         `{"status":true,"data":{"books":` + items + `}}`,
		"double data":    `{"data":{"data":` + items + `}}`,
		"single member":  `{"success":"success","data":{"offers":` + items + `,"count":2}}`,
		"status numeric": `{"status":200,"data":` + items + `}`,
	} {
		assert.Equal(t, want, records(t, body, "books"), name)
	}
}

func TestRecords_NullAndEmpty(t *testing.T) {
	assert.Empty(t, records(t, `{"status":true,"data":null}`))
	assert.Empty(t, records(t, ``))
	assert.Empty(t, records(t, `[]`))
}

func TestRecords_Ambiguous(t *testing.T) {
	env, err := api.Decode([]byte(`{"data":{"a":[],"b":[]}}`))
	require.NoError(t, err)
	_, err = env.Records()
	require.ErrorIs(t, err, api.ErrUnexpectedShape)
}

func TestDecode_StatusFlags(t *testing.T) {
	for body, ok := range map[string]bool{
		`{"status":true}`:         true,
		`{"status":false}`:        false,
		`{"success":false}`:       false,
		`{"status":"success"}`:    true,
		`{"status":"error"}`:      false,
		`{"message":"deleted"}`:   true,
		`{"_id":"x","title":"y"}`: true,
	} {
		env, err := api.Decode([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, ok, env.OK(), body)
	}
}

func TestDecode_BareObjectIsPayload(t *testing.T) {
	env, err := api.Decode([]byte(`{"_id":"x","title":"y"}`))
	require.NoError(t, err)
	rec, err := env.Record()
	require.NoError(t, err)
	assert.Equal(t, "y", rec.String("title"))
}

func TestRecord_UnwrapsResourceKey(t *testing.T) {
	env, err := api.Decode([]byte(`{"status":true,"data":{"book":{"_id":"b9","title":"T"}}}`))
	require.NoError(t, err)
	rec, err := env.Record("book")
	require.NoError(t, err)
	assert.Equal(t, "b9", rec.ID())
}

func TestDecode_Invalid(t *testing.T) {
	_, err := api.Decode([]byte(`<html>`))
	require.ErrorIs(t, err, api.ErrUnexpectedShape)
}
