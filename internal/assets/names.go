package assets

import (
	"encoding/hex"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

// defaultHashLength applies to [hash] and [contenthash] without a length.
const defaultHashLength = 20

var hashPlaceholder = regexp.MustCompile(`\[(?:content)?hash(?::(\d+))?\]`)

// expandName replaces hash placeholders in template with the BLAKE3 digest of contents.
func expandName(template string, contents []byte) string {
	if !hashPlaceholder.MatchString(template) {
		return template
	}

	sum := blake3.Sum256(contents)
	digest := hex.EncodeToString(sum[:])

	return hashPlaceholder.ReplaceAllStringFunc(template, func(match string) string {
		n := defaultHashLength
		if groups := hashPlaceholder.FindStringSubmatch(match); groups[1] != "" {
			if v, err := strconv.Atoi(groups[1]); err == nil && v > 0 {
				n = v
			}
		}
		return digest[:min(n, len(digest))]
	})
}

// assetName expands an asset name template such as images/[hash:12].[ext]
// for the file esbuild emitted as staged.
func assetName(template, staged string, contents []byte) string {
	ext := strings.TrimPrefix(path.Ext(staged), ".")
	return expandName(strings.ReplaceAll(template, "[ext]", ext), contents)
}
