package vs

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// Namespaces for the deterministic identifiers of generated projects and
// solution-internal objects. Deriving GUIDs from stable names instead of
// generating random ones keeps regenerated files identical.
var (
	namespaceProject  = mustNamespace("d9bd5916f0554d778c699448e02bf433")
	namespaceSlnGroup = mustNamespace("2d0c29e0512f47be9ac4f4cae74ae16e")
	namespaceInternal = mustNamespace("baa4019e6d674ef1b3cbae6cd82e4060")
)

// Project kind GUIDs recognized by the solution format.
const (
	kindProjectC       = "8BC9CEB8-8B4A-11D0-8D11-00A0C91BC942"
	kindSolutionFolder = "2150E333-8FDC-42A3-9474-1A3956D46DE8"
)

type guidNamespace [16]byte

func mustNamespace(s string) guidNamespace {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		panic("malformed GUID namespace " + s)
	}
	var ns guidNamespace
	copy(ns[:], b)

	return ns
}

// newGUID derives a stable identifier from the name of the solution an
// object belongs to and an object-specific string. The result is a
// version 5 UUID in the uppercase form Visual Studio files use, without
// the braces.
func newGUID(ns guidNamespace, solution, data string) string {
	h := sha1.New()
	h.Write(ns[:])
	h.Write([]byte(solution + "/" + data))
	sum := h.Sum(nil)

	var b [16]byte
	copy(b[:], sum)
	b[6] = b[6]&0x0F | 0x50
	b[8] = b[8]&0x3F | 0x80

	return strings.ToUpper(fmt.Sprintf("%x-%x-%x-%x-%x",
		b[0:4], b[4:6], b[6:8], b[8:10], b[10:16]))
}

// braced wraps a GUID in the braces most of the file formats want.
func braced(guid string) string { return "{" + guid + "}" }
