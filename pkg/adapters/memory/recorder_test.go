package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/suitemux/pkg/adapters/memory"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := memory.NewRunner()
	r.Describe("suite", func(s *domain.Suite) {
		s.AddTest("one", pass)
	})
	rec := memory.NewRecorder()
	rec.Record(r)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 9, rec.Len())
	assert.Len(t, rec.Since(7), 2)
	assert.Empty(t, rec.Since(100))

	rec.Stop()
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 9, rec.Len(), "no events after Stop")

	rec.Reset()
	assert.Equal(t, 0, rec.Len())
}
