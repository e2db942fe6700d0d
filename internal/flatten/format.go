package flatten

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wes-public-apps/protobuf-db/internal/schema"
)

const hexDigits = "0123456789abcdef"

// FormatValue renders a flattened value in its natural string form. Bytes
// become lowercase hex octets separated by single spaces ("6a 6b"); nil
// renders empty.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return hexPairs(x)
	case bool:
		return strconv.FormatBool(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case schema.EnumNumber:
		return strconv.FormatInt(int64(x), 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// FormatKey renders a map key. Keys sort by this rendering.
func FormatKey(k any) string { return FormatValue(k) }

func hexPairs(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(b)*3 - 1)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0f])
	}
	return sb.String()
}

// FormatValues renders every value with FormatValue.
func FormatValues(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = FormatValue(f.Value)
	}
	return out
}

// ToCSV joins the paths and the rendered values of one record into a header
// line and a value line. Nothing is quoted or escaped.
func ToCSV(fields []Field) (header, line string) {
	paths, _ := Split(fields)
	return strings.Join(paths, ","), strings.Join(FormatValues(fields), ",")
}
