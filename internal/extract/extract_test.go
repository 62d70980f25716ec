package extract

import (
	"testing"

	"kycintake/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"spaced aadhaar", " 1234 5678 9012 ", "123456789012"},
		{"lowercase pan", "abcde1234f", "ABCDE1234F"},
		{"tabs and newlines", "ab\tcd\nef", "ABCDEF"},
		{"sentinel uppercase", "N/A", ""},
		{"sentinel lowercase", "n/a", ""},
		{"empty", "", ""},
		{"whitespace only", "   \t\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{" 1234 5678 9012 ", "abcde1234f", "N/A", "", "already"}
	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestIdentityPANCard(t *testing.T) {
	rawText := `INCOME TAX DEPARTMENT
GOVT OF INDIA
RAVI KUMAR SHARMA
ABCDE1234F
DOB
12/04/1990`

	identity := Identity(rawText)

	assert.Equal(t, domain.DocumentClassPAN, identity.DocumentClass)
	assert.Equal(t, "ABCDE1234F", identity.PAN)
	assert.Equal(t, "RAVI KUMAR SHARMA", identity.Name)
	assert.Equal(t, "12/04/1990", identity.DOB)
	assert.Equal(t, domain.FieldUnavailable, identity.Aadhaar)
	assert.Equal(t, domain.FieldUnavailable, identity.Address)
}

func TestIdentityPANNameCapsOnly(t *testing.T) {
	// OCR noise around the name line must be stripped; at most three words
	// of two or more capital letters survive.
	rawText := `PERMANENT ACCOUNT NUMBER
R4VI KUMAR SHARMA JI X
ABCDE1234F`

	identity := Identity(rawText)

	assert.Equal(t, "ABCDE1234F", identity.PAN)
	assert.Equal(t, "RVI KUMAR SHARMA", identity.Name)
}

func TestIdentityAadhaarCard(t *testing.T) {
	rawText := `Government of India
Unique Identification Authority of India (UIDAI)
To
Ramesh Chandra Gupta
S/O Suresh Gupta
House No 42, Gandhi Nagar
Near Old Temple
Jaipur, Rajasthan
302001
01/01/1985
Male
1234 5678 9012`

	identity := Identity(rawText)

	assert.Equal(t, domain.DocumentClassAadhaar, identity.DocumentClass)
	assert.Equal(t, "123456789012", identity.Aadhaar)
	assert.Equal(t, "MALE", identity.Gender)
	assert.Equal(t, "01/01/1985", identity.DOB)
	assert.Equal(t, "Ramesh Chandra Gupta", identity.Name)
	assert.Equal(t, "House No 42, Gandhi Nagar Near Old Temple Jaipur, Rajasthan 302001", identity.Address)
	assert.Equal(t, domain.FieldUnavailable, identity.PAN)
}

func TestIdentityAadhaarYearOfBirth(t *testing.T) {
	rawText := `UIDAI
Sita Devi
Year of Birth : 1972
Female
9876 5432 1098`

	identity := Identity(rawText)

	assert.Equal(t, "FEMALE", identity.Gender)
	assert.Equal(t, "1972", identity.DOB)
	assert.Equal(t, "987654321098", identity.Aadhaar)
}

func TestIdentityVIDIsNotAadhaar(t *testing.T) {
	// A Virtual ID shares the 4-4-4 digit shape but must never be taken as
	// the Aadhaar number.
	rawText := `UIDAI
VID : 9150 1234 5678 9012`

	identity := Identity(rawText)

	assert.Equal(t, domain.DocumentClassAadhaar, identity.DocumentClass)
	assert.Equal(t, domain.FieldUnavailable, identity.Aadhaar)
}

func TestIdentityAadhaarAfterVID(t *testing.T) {
	rawText := `UIDAI
VID : 9150 1234 5678 9012
Aadhaar 4321 8765 2109`

	identity := Identity(rawText)

	assert.Equal(t, "432187652109", identity.Aadhaar)
}

func TestIdentityUnknownDocument(t *testing.T) {
	identity := Identity("just some unrelated scanned text 1234")

	assert.Equal(t, domain.DocumentClassUnknown, identity.DocumentClass)
	assert.Equal(t, domain.FieldUnavailable, identity.Name)
	assert.Equal(t, domain.FieldUnavailable, identity.Aadhaar)
	assert.Equal(t, domain.FieldUnavailable, identity.PAN)
	assert.Equal(t, domain.FieldUnavailable, identity.Address)
}

func TestIdentityEmptyInput(t *testing.T) {
	identity := Identity("")

	assert.Equal(t, domain.DocumentClassUnknown, identity.DocumentClass)
	assert.Equal(t, domain.FieldUnavailable, identity.Name)
}

func TestFindAadhaarAddressScrubsPhoneNumbers(t *testing.T) {
	lines := []string{
		"S/O Suresh Gupta",
		"House No 42",
		"Mobile 9876543210",
		"Jaipur 302001",
	}

	address := findAadhaarAddress(lines)

	assert.NotContains(t, address, "9876543210")
	assert.Contains(t, address, "302001")
}
