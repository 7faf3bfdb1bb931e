package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceType_IsValid(t *testing.T) {
	valid := []SourceType{SourceTypeREST, SourceTypeGraphQL, SourceTypeSOAP, SourceTypeAsyncAPI, SourceTypeLegacy}
	for _, st := range valid {
		assert.True(t, st.IsValid(), "source type %q should be valid", st)
	}
	assert.False(t, SourceType("grpc").IsValid())
	assert.False(t, SourceType("").IsValid())
}

func TestEnvironment_IsValid(t *testing.T) {
	valid := []Environment{EnvironmentDev, EnvironmentStaging, EnvironmentProd}
	for _, e := range valid {
		assert.True(t, e.IsValid(), "environment %q should be valid", e)
	}
	assert.False(t, Environment("qa").IsValid())
}

func TestChunk_Validate(t *testing.T) {
	doc := Document{ID: "doc-1", RawText: "get customer balance"}

	tests := []struct {
		name    string
		chunk   Chunk
		wantErr bool
	}{
		{
			name:  "valid span",
			chunk: Chunk{ID: "c1", DocumentID: "doc-1", OffsetStart: 0, OffsetEnd: 12},
		},
		{
			name:  "full span",
			chunk: Chunk{ID: "c2", DocumentID: "doc-1", OffsetStart: 0, OffsetEnd: len(doc.RawText)},
		},
		{
			name:    "wrong document",
			chunk:   Chunk{ID: "c3", DocumentID: "doc-2", OffsetStart: 0, OffsetEnd: 5},
			wantErr: true,
		},
		{
			name:    "end before start",
			chunk:   Chunk{ID: "c4", DocumentID: "doc-1", OffsetStart: 10, OffsetEnd: 5},
			wantErr: true,
		},
		{
			name:    "end past raw text",
			chunk:   Chunk{ID: "c5", DocumentID: "doc-1", OffsetStart: 0, OffsetEnd: 100},
			wantErr: true,
		},
		{
			name:    "negative start",
			chunk:   Chunk{ID: "c6", DocumentID: "doc-1", OffsetStart: -1, OffsetEnd: 5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.chunk.Validate(doc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDegradation_Any(t *testing.T) {
	assert.False(t, Degradation{}.Any())
	assert.True(t, Degradation{VectorSearch: true}.Any())
	assert.True(t, Degradation{Rerank: true}.Any())
	assert.True(t, Degradation{Deadline: true}.Any())
}
