package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKEMRoundTrip(t *testing.T) {
	e := NewEngine()

	pub, priv, err := e.GenerateKEMKeyPair(KEMKyber768)
	require.NoError(t, err)
	require.NotEmpty(t, pub)
	require.NotEmpty(t, priv)

	secret, capsule, err := e.Encapsulate(pub, KEMKyber768)
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	recovered, err := e.Decapsulate(capsule, priv, KEMKyber768)
	require.NoError(t, err)
	require.Equal(t, secret, recovered)
}

func TestGenerateKEMKeyPairUnsupported(t *testing.T) {
	e := NewEngine()
	_, _, err := e.GenerateKEMKeyPair("not-a-kem")
	require.ErrorIs(t, err, ErrAlgorithmUnsupported)
}

func TestEncapsulateInvalidKey(t *testing.T) {
	e := NewEngine()
	_, _, err := e.Encapsulate([]byte("too-short"), KEMKyber768)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestDeriveSymmetricOrderInvariant(t *testing.T) {
	e := NewEngine()
	a := []byte("secret-from-party-a-0123456789")
	b := []byte("secret-from-party-b-9876543210")

	k1, err := e.DeriveSymmetric(a, b, SymmetricAES256GCM)
	require.NoError(t, err)
	k2, err := e.DeriveSymmetric(b, a, SymmetricAES256GCM)
	require.NoError(t, err)

	require.Equal(t, k1, k2)
	require.Len(t, k1, 32)
}

func TestDeriveSymmetricUnsupportedAlgorithm(t *testing.T) {
	e := NewEngine()
	_, err := e.DeriveSymmetric([]byte("a"), []byte("b"), "bogus")
	require.ErrorIs(t, err, ErrAlgorithmUnsupported)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	e := NewEngine()
	scheme, err := sigScheme(SignatureDilithium3)
	require.NoError(t, err)
	pub, priv, err := scheme.GenerateKey()
	require.NoError(t, err)
	pubBytes, err := pub.MarshalBinary()
	require.NoError(t, err)
	privBytes, err := priv.MarshalBinary()
	require.NoError(t, err)

	data := []byte("established-fingerprint")
	sig, err := e.Sign(data, privBytes, SignatureDilithium3)
	require.NoError(t, err)

	require.NoError(t, e.Verify(data, sig, pubBytes, SignatureDilithium3))
	require.ErrorIs(t, e.Verify([]byte("tampered"), sig, pubBytes, SignatureDilithium3), ErrInvalidSignature)
}

func TestGenerateSignatureKeyPair(t *testing.T) {
	e := NewEngine()
	pub, priv, err := e.GenerateSignatureKeyPair(SignatureFalcon512)
	require.NoError(t, err)
	require.NotEmpty(t, pub)
	require.NotEmpty(t, priv)

	data := []byte("identity-assertion")
	sig, err := e.Sign(data, priv, SignatureFalcon512)
	require.NoError(t, err)
	require.NoError(t, e.Verify(data, sig, pub, SignatureFalcon512))
}

func TestFingerprintSymmetricAndStable(t *testing.T) {
	e := NewEngine()
	a := []byte("public-key-a")
	b := []byte("public-key-b")

	fp1 := e.Fingerprint(a, b, SymmetricAES256GCM)
	fp2 := e.Fingerprint(b, a, SymmetricAES256GCM)

	require.Equal(t, fp1, fp2)
	require.Len(t, fp1, 32)
}

func TestFormatFingerprint(t *testing.T) {
	require.Equal(t, "a1b2 c3d4", FormatFingerprint("a1b2c3d4"))
}

func TestZeroize(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	Zeroize(buf)
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}
