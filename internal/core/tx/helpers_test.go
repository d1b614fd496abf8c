package tx

import "encoding/hex"

func hexSig(sig []byte) string {
	return hex.EncodeToString(sig)
}
