package xmlscan

import (
	"strconv"
	"strings"
)

var namedEntities = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"amp":  "&",
	"quot": `"`,
	"apos": "'",
}

// DecodeEntities expands &lt; &gt; &amp; &quot; &apos; &#N; &#xH;.
func DecodeEntities(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '&' {
			sb.WriteByte(s[i])
			continue
		}
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			sb.WriteByte(s[i])
			continue
		}
		ent := s[i+1 : i+end]
		if r, ok := decodeOne(ent); ok {
			sb.WriteRune(r)
			i += end
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func decodeOne(ent string) (rune, bool) {
	if v, ok := namedEntities[ent]; ok {
		return []rune(v)[0], true
	}
	if strings.HasPrefix(ent, "#x") || strings.HasPrefix(ent, "#X") {
		n, err := strconv.ParseInt(ent[2:], 16, 32)
		if err != nil {
			return 0, false
		}
		return rune(n), true
	}
	if strings.HasPrefix(ent, "#") {
		n, err := strconv.ParseInt(ent[1:], 10, 32)
		if err != nil {
			return 0, false
		}
		return rune(n), true
	}
	return 0, false
}
