package restclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestParamsEncodeKeepsInsertionOrder(t *testing.T) {
	p := NewParams()
	p.Add("zeta", "1")
	p.Add("alpha", "two words")
	p.Add("zeta", "3")

	assert.Equal(t, []string{"zeta", "alpha"}, p.Keys())
	assert.Equal(t, "zeta=1&zeta=3&alpha=two+words", p.Encode())
}

func TestParamsRemoveIsStrict(t *testing.T) {
	p := NewParams()
	p.Add("address", "fetch1abc")
	p.Add("denom", "afet")

	require.NoError(t, p.Remove("address"))
	assert.Equal(t, "denom=afet", p.Encode())

	err := p.Remove("address")
	assert.True(t, errors.Is(err, ErrParamNotFound))
	assert.Equal(t, 1, p.Len())
}

func TestEmptyParamsEncodeToEmptyString(t *testing.T) {
	var p *Params
	assert.Equal(t, "", p.Encode())
	assert.Equal(t, "", NewParams().Encode())
}

func TestEncodeParamsSkipsEmptyLists(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{"tags": []any{}})
	require.NoError(t, err)

	params, err := encodeParams(DefaultCodec, msg, nil)
	require.NoError(t, err)
	assert.Zero(t, params.Len())

	// an empty list still counts as present for used params
	params, err = encodeParams(DefaultCodec, msg, []string{"tags"})
	require.NoError(t, err)
	assert.Zero(t, params.Len())
}

func TestEncodeParamsExpandsListsOfObjects(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{
		"events": []any{
			map[string]any{"type": "transfer"},
			map[string]any{"type": "message"},
		},
	})
	require.NoError(t, err)

	params, err := encodeParams(DefaultCodec, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, "events.type=transfer&events.type=message", params.Encode())
}

func TestDecodeObjectRejectsNonObjects(t *testing.T) {
	_, err := decodeObject([]byte(`["a"]`))
	assert.Error(t, err)
}

type failingCodec struct{}

var errCodec = errors.New("codec failure")

func (failingCodec) Marshal(proto.Message) ([]byte, error) { return nil, errCodec }

func TestCodecErrorsAreWrapped(t *testing.T) {
	c := New("http://node:1317", WithCodec(failingCodec{}))
	defer c.Close()

	msg, err := structpb.NewStruct(map[string]any{"a": "b"})
	require.NoError(t, err)

	_, err = c.getURL("/x", msg, nil)
	assert.ErrorIs(t, err, errCodec)
	_, err = c.Post(context.Background(), "/x", msg)
	assert.ErrorIs(t, err, errCodec)
}
