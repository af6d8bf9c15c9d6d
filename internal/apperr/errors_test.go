package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kiranshivaraju/hirepipe/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	nf := apperr.NotFound("selection process %s", "abc")
	assert.ErrorIs(t, nf, apperr.ErrNotFound)
	assert.NotErrorIs(t, nf, apperr.ErrRuleViolation)
	assert.Equal(t, "not found: selection process abc", nf.Error())

	v := apperr.Violation("process is finalized")
	assert.ErrorIs(t, v, apperr.ErrRuleViolation)

	c := apperr.Conflict("stale version")
	assert.ErrorIs(t, c, apperr.ErrConflict)
}

func TestKinds_SurviveWrapping(t *testing.T) {
	err := fmt.Errorf("advance: %w", apperr.Violation("already at last stage"))
	assert.True(t, errors.Is(err, apperr.ErrRuleViolation))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "job 42", apperr.Message(apperr.NotFound("job %d", 42)))
	assert.Equal(t, "use finalize instead", apperr.Message(apperr.Violation("use finalize instead")))
	assert.Equal(t, "boom", apperr.Message(errors.New("boom")))
}
