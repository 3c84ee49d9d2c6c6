package paymail

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeBRFCID computes a BRFC (Bitcoin Request for Comments) ID.
//
//	ID = hex(SHA256d(title + author + version))[:12]
//
// SHA256d denotes SHA256(SHA256(x)).
func ComputeBRFCID(title, author, version string) string {
	data := []byte(title + author + version)
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return hex.EncodeToString(second[:6])
}

// BRFCRoyaltyReceiver is the capability a paymail host advertises to hand out
// a dedicated royalty receiving key. Its endpoint answers like PKI.
var BRFCRoyaltyReceiver = ComputeBRFCID("Royalty Receiver", "revsplit", "1.0")
