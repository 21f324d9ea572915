package jam

import (
	"strings"
)

func parseTag(tag string) map[string]string {
	result := make(map[string]string)
	pairs := strings.Split(tag, ",")
	for _, pair := range pairs {
		kv := strings.Split(pair, "=")
		if len(kv) == 2 {
			result[kv[0]] = kv[1]
		}
	}
	return result
}
