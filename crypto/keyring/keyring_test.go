package keyring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xEodum/NativeLayer/crypto"
)

func TestPredicates(t *testing.T) {
	k := &KeyRing{}
	require.False(t, k.HasKeypair())
	require.False(t, k.HasPeerKey())
	require.False(t, k.IsComplete())

	k.OwnPublic = []byte("pub")
	k.OwnPrivate = []byte("priv")
	require.True(t, k.HasKeypair())
	require.False(t, k.IsComplete())

	k.PeerPublic = []byte("peer")
	require.True(t, k.HasPeerKey())
	require.False(t, k.IsComplete())

	k.Symmetric = []byte("sym")
	require.True(t, k.IsComplete())
}

func TestSecureWipePreEstablishment(t *testing.T) {
	k := &KeyRing{
		OwnPublic:  []byte("pub"),
		OwnPrivate: []byte("priv"),
		PeerPublic: []byte("peer"),
	}
	k.SecureWipe(false)

	require.Nil(t, k.OwnPrivate)
	require.Equal(t, []byte("pub"), k.OwnPublic)
	require.Equal(t, []byte("peer"), k.PeerPublic)
}

func TestSecureWipeEstablished(t *testing.T) {
	k := &KeyRing{
		OwnPublic:  []byte("pub"),
		OwnPrivate: []byte("priv"),
		PeerPublic: []byte("peer"),
		Symmetric:  []byte("sym"),
	}
	k.SecureWipe(true)

	require.Nil(t, k.OwnPrivate)
	require.Nil(t, k.OwnPublic)
	require.Nil(t, k.PeerPublic)
	require.Equal(t, []byte("sym"), k.Symmetric)
}

func TestEstablishedCleansRing(t *testing.T) {
	k := &KeyRing{
		OwnPublic:  []byte("pub"),
		OwnPrivate: []byte("priv"),
		PeerPublic: []byte("peer"),
		Symmetric:  []byte("sym"),
		Algorithms: crypto.AlgorithmTriple{KEM: crypto.KEMKyber768, Symmetric: crypto.SymmetricAES256GCM, Signature: crypto.SignatureDilithium3},
	}
	clean := k.Established()

	require.Nil(t, clean.OwnPrivate)
	require.Nil(t, clean.OwnPublic)
	require.Nil(t, clean.PeerPublic)
	require.Equal(t, []byte("sym"), clean.Symmetric)
	require.True(t, clean.Algorithms.Valid())
}
