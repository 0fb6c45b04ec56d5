package contract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalize_UnserializablePayloadRejected(t *testing.T) {
	// GIVEN: A valid record whose audit payload fails to encode
	// WHEN: Normalizing it in a batch
	// THEN: The record is rejected with the encoding failure, not stored blank

	marshalPayload = func(any) ([]byte, error) { return nil, errors.New("encoder broke") }
	t.Cleanup(func() { marshalPayload = json.Marshal })

	raw := RawContract{ID: String("c-1"), DataPagamento: String("10/03/2025")}
	batch := NewNormalizer(DefaultSentinels(), zap.NewNop()).NormalizeBatch([]RawContract{raw})

	assert.Empty(t, batch.Results)
	require.Len(t, batch.Rejected, 1)
	assert.Equal(t, "c-1", batch.Rejected[0].IDContrato)
	assert.ErrorIs(t, batch.Rejected[0], ErrUnserializablePayload)
	require.Len(t, batch.Warnings, 1)
	assert.Equal(t, WarnRejected, batch.Warnings[0].Code)
}
