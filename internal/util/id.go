// Package util generates the prefixed entity ids used across the API.
package util

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// Id prefixes, one per entity family. The prefix makes ids self-describing
// in logs, URLs and notification references.
const (
	IDUser         = "usr"
	IDProject      = "prj"
	IDTask         = "tsk"
	IDSubtask      = "sub"
	IDWorkOrder    = "wrk"
	IDComment      = "cmt"
	IDNote         = "nte"
	IDAttachment   = "att"
	IDInvitation   = "inv"
	IDNotification = "ntf"
	IDReport       = "rpt"
	IDActivity     = "act"
	IDTemplate     = "tpl"
	IDTokenClaim   = "jti"
	IDRefreshToken = "rtk"
)

// NewID returns "<prefix>_<32 hex chars>" from a crypto/rand source, or the
// bare hex when prefix is empty.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// Prefix returns the entity-family prefix of an id, or "" when the id does
// not carry one.
func Prefix(id string) string {
	if i := strings.IndexByte(id, '_'); i > 0 {
		return id[:i]
	}
	return ""
}
