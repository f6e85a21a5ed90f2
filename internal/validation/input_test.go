package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProposalName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"plain", "Homepage takeover", false},
		{"cyrillic at limit", strings.Repeat("я", MaxProposalNameLength), false},
		{"blank", "   ", true},
		{"too long", strings.Repeat("a", MaxProposalNameLength+1), true},
		{"control char", "name\x00", true},
		{"newline", "line\nbreak", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProposalName(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTerms(t *testing.T) {
	assert.NoError(t, ValidateTerms(""))
	assert.NoError(t, ValidateTerms("net 30\tviewability 70%"))
	assert.Error(t, ValidateTerms(strings.Repeat("x", MaxTermsLength+1)))
	assert.Error(t, ValidateTerms("bell\a"))
}

func TestValidateLength(t *testing.T) {
	assert.NoError(t, ValidateLength("f", "abc", 3, 3))
	assert.EqualError(t, ValidateLength("f", "ab", 3, 0), "f: не менее 3 символов")
	assert.EqualError(t, ValidateLength("f", "abcd", 0, 3), "f: не более 3 символов")
}
