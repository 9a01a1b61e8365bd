// pkg/artifact/encode.go
package artifact

import (
	"encoding/json"
	"strings"
)

// encodeParams renders a parameter map as JSON for the jsonb column
func encodeParams(params map[string]string) ([]byte, error) {
	if params == nil {
		params = map[string]string{}
	}
	return json.Marshal(params)
}

// encodeTextArray renders a string slice in Postgres array literal syntax
func encodeTextArray(values []string) string {
	if len(values) == 0 {
		return "{}"
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		quoted[i] = `"` + v + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}
