package jetdb

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	DefaultDateFormat = "%x %X"

	// days between 1899-12-30 and the unix epoch
	jetEpochDays  = 25569.0
	secondsPerDay = 86400.0

	floatDigits  = 6
	doubleDigits = 15
)

// Decoder turns raw column bytes into display strings. It carries the date
// format and legacy charset of one DB handle, and is otherwise stateless:
// identical input always yields identical output.
type Decoder struct {
	version JetVersion
	date    *strftime.Strftime
	charset encoding.Encoding
}

// NewDecoder builds a Decoder. An empty dateFormat selects DefaultDateFormat;
// an empty charset leaves Jet3 text untouched.
func NewDecoder(version JetVersion, dateFormat, charset string) (*Decoder, error) {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}
	f, err := strftime.New(dateFormat)
	if err != nil {
		return nil, errors.Wrapf(err, "date format %q", dateFormat)
	}
	d := &Decoder{version: version, date: f}
	if charset != "" {
		if d.charset, err = htmlindex.Get(charset); err != nil {
			return nil, errors.Wrapf(err, "charset %q", charset)
		}
	}
	return d, nil
}

// Decode renders raw as a string according to typ. Booleans, memo and OLE
// values are not held in raw and decode to "" here; the binder handles them.
func (d *Decoder) Decode(typ ColType, raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	if w := typ.fixedWidth(); w > 0 && len(raw) < w {
		return "", errors.Wrapf(ErrOutOfBounds, "%s value needs %d bytes, have %d", typ, w, len(raw))
	}
	switch typ {
	case ColByte:
		return strconv.Itoa(int(raw[0])), nil
	case ColInt:
		return strconv.Itoa(int(int16(binary.LittleEndian.Uint16(raw)))), nil
	case ColLongInt:
		return strconv.Itoa(int(int32(binary.LittleEndian.Uint32(raw)))), nil
	case ColMoney:
		return formatMoney(int64(binary.LittleEndian.Uint64(raw))), nil
	case ColFloat:
		v := math.Float32frombits(binary.LittleEndian.Uint32(raw))
		return formatFloat(float64(v), floatDigits, 32), nil
	case ColDouble:
		v := math.Float64frombits(binary.LittleEndian.Uint64(raw))
		return formatFloat(v, doubleDigits, 64), nil
	case ColDateTime:
		return d.formatDate(math.Float64frombits(binary.LittleEndian.Uint64(raw))), nil
	case ColText:
		return d.Text(raw)
	case ColBinary, ColRepID:
		return hex.EncodeToString(raw), nil
	case ColNumeric:
		return d.Numeric(raw, 0, 0)
	}
	return "", nil
}

// Numeric renders a 17 byte fixed point field. The magnitude is zero padded
// to prec digits and a decimal point inserted scale digits from the right.
func (d *Decoder) Numeric(raw []byte, prec, scale int) (string, error) {
	if len(raw) < 17 {
		return "", errors.Wrapf(ErrOutOfBounds, "numeric value needs 17 bytes, have %d", len(raw))
	}
	mag := binary.LittleEndian.Uint32(raw[13:17])
	width := prec
	if scale > width {
		width = scale
	}
	s := fmt.Sprintf("%0*d", width, mag)
	if scale > 0 {
		s = s[:len(s)-scale] + "." + s[len(s)-scale:]
	}
	if raw[0]&0x80 != 0 {
		s = "-" + s
	}
	return s, nil
}

// Text decodes a text value. Jet4 stores UCS-2 either behind an FF FE
// compression marker or as plain little-endian pairs; the latter is narrowed
// by keeping every other byte.
func (d *Decoder) Text(raw []byte) (string, error) {
	if d.version == Jet3 {
		if d.charset == nil {
			return string(raw), nil
		}
		out, err := d.charset.NewDecoder().Bytes(raw)
		if err != nil {
			return "", errors.Wrap(err, "charset decode")
		}
		return string(out), nil
	}
	if len(raw) >= 2 && raw[0] == 0xff && raw[1] == 0xfe {
		return string(raw[2:]), nil
	}
	out := make([]byte, 0, (len(raw)+1)/2)
	for i := 0; i < len(raw); i += 2 {
		out = append(out, raw[i])
	}
	return string(out), nil
}

func (d *Decoder) formatDate(days float64) string {
	secs := int64((days - jetEpochDays) * secondsPerDay)
	return d.date.FormatString(time.Unix(secs, 0).UTC())
}

func formatMoney(v int64) string {
	u := uint64(v)
	sign := ""
	if v < 0 {
		u = uint64(-v)
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%04d", sign, u/10000, u%10000)
}

// formatFloat prints v with only as many decimals as its type has
// significant digits left after the integer part, then trims.
func formatFloat(v float64, digits, bits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, bits)
	}
	prec := digits
	if v != 0 {
		prec = digits - int(math.Ceil(math.Log10(math.Abs(v))))
	}
	if prec < 0 {
		prec = 0
	}
	return trimTrailingZeros(fmt.Sprintf("%.*f", prec, v))
}

func trimTrailingZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
