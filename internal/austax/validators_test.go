package austax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateABN(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "valid ATO example", input: "51824753556", want: "51824753556"},
		{name: "valid with spaces", input: "51 824 753 556", want: "51824753556"},
		{name: "valid second", input: "53004085616", want: "53004085616"},
		{name: "bad checksum", input: "51824753557", wantErr: true},
		{name: "too short", input: "5182475355", wantErr: true},
		{name: "too long", input: "518247535561", wantErr: true},
		{name: "non numeric", input: "51824A53556", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateABN(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "abn", verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateACN(t *testing.T) {
	got, err := ValidateACN("004 085 616")
	require.NoError(t, err)
	assert.Equal(t, "004085616", got)

	_, err = ValidateACN("00408561")
	require.Error(t, err)

	_, err = ValidateACN("00408561X")
	require.Error(t, err)
}

func TestValidateBSB(t *testing.T) {
	got, err := ValidateBSB("062-000")
	require.NoError(t, err)
	assert.Equal(t, "062000", got)

	got, err = ValidateBSB("062000")
	require.NoError(t, err)
	assert.Equal(t, "062000", got)

	_, err = ValidateBSB("62-000")
	require.Error(t, err)
}

func TestValidatePostcode(t *testing.T) {
	got, err := ValidatePostcode("2000")
	require.NoError(t, err)
	assert.Equal(t, "2000", got)

	for _, bad := range []string{"200", "20000", "2O00", ""} {
		_, err := ValidatePostcode(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateAccountNumber(t *testing.T) {
	got, err := ValidateAccountNumber("12345678")
	require.NoError(t, err)
	assert.Equal(t, "12345678", got)

	for _, bad := range []string{"12345", "12345678901", "1234567a"} {
		_, err := ValidateAccountNumber(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "51 824 753 556", FormatABN("51824753556"))
	assert.Equal(t, "004 085 616", FormatACN("004085616"))
	assert.Equal(t, "062-000", FormatBSB("062000"))

	// Malformed input passes through untouched.
	assert.Equal(t, "123", FormatABN("123"))
	assert.Equal(t, "123", FormatACN("123"))
	assert.Equal(t, "123", FormatBSB("123"))
}
