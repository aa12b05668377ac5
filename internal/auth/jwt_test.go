package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceToken_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateDeviceToken("room-101", secret, time.Minute)
	require.NoError(t, err)

	deviceID, err := DeviceIDFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "room-101", deviceID)
}

func TestDeviceToken_WrongSecret(t *testing.T) {
	token, err := GenerateDeviceToken("room-101", []byte("secret-a"), time.Minute)
	require.NoError(t, err)

	_, err = DeviceIDFromToken(token, []byte("secret-b"))
	assert.Error(t, err)
}

func TestDeviceToken_Expired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateDeviceToken("room-101", secret, -time.Minute)
	require.NoError(t, err)

	_, err = DeviceIDFromToken(token, secret)
	assert.Error(t, err)
}

func TestDeviceToken_Garbage(t *testing.T) {
	_, err := DeviceIDFromToken("not-a-token", []byte("x"))
	assert.Error(t, err)
}
