package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientOrderIDRoundTrip(t *testing.T) {
	clordid := EncodeClientOrderID("JVEE", 300)
	assert.Equal(t, "JVEE-300", clordid)

	brokerID, orderID, err := DecodeClientOrderID(clordid)
	require.NoError(t, err)
	assert.Equal(t, "JVEE", brokerID)
	assert.Equal(t, int64(300), orderID)
}

func TestDecodeClientOrderIDSplitsOnFirstDash(t *testing.T) {
	// a long broker id decodes the same as a short one
	brokerID, orderID, err := DecodeClientOrderID("LONGBROKER-42")
	require.NoError(t, err)
	assert.Equal(t, "LONGBROKER", brokerID)
	assert.Equal(t, int64(42), orderID)

	// a second dash lands in the numeric part and fails the parse
	_, _, err = DecodeClientOrderID("JV-EE-300")
	require.Error(t, err)
}

func TestDecodeClientOrderIDRejectsMalformed(t *testing.T) {
	for _, clordid := range []string{"", "JVEE", "JVEE-", "-300", "JVEE-0", "JVEE--1", "JVEE-abc"} {
		_, _, err := DecodeClientOrderID(clordid)
		assert.Errorf(t, err, "clordid %q should not decode", clordid)
	}
}

func TestValidateBrokerID(t *testing.T) {
	require.NoError(t, ValidateBrokerID("JVEE"))
	require.Error(t, ValidateBrokerID(""))
	require.Error(t, ValidateBrokerID("JV-EE"))
}
