package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstants(t *testing.T) {
	for _, name := range []string{
		FieldComponent, FieldStage, FieldPatternID, FieldStoreType, FieldRequestID,
		FieldCount, FieldConfidence, FieldDuration, FieldInputFile, FieldOutputFile,
	} {
		assert.NotEmpty(t, name)
	}
}
