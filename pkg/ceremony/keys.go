package ceremony

// Artifact keys. Shared keys live in the artifact store, local keys in the
// participant's keystore only.
const (
	KeyRecipients         = "recipients"
	KeyContributions      = "contributions"
	KeyThresholdPublicKey = "threshold_public_key"
	KeyThresholdAccount   = "threshold_account"
	KeySPPOutput          = "spp_output"
	KeySigningCommitments = "signing_commitments"
	KeyUnsignedTx         = "unsigned_transaction"
	KeySigningPackages    = "signing_packages"
	KeySignature          = "signature"
	KeyExtrinsicHash      = "extrinsic_hash"

	LocalSecretKey     = "secret_key"
	LocalSigningShare  = "signing_share"
	LocalSigningNonces = "signing_nonces"
	LocalOwnCommitment = "own_commitment"
)
