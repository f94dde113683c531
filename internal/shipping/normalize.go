package shipping

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks decomposes to NFD, drops combining marks and recomposes, turning
// "Đà Nẵng" into "Đa Nang". The đ/Đ letters are not decomposable and are
// replaced separately.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var unitPrefixes = []string{
	"tinh ",
	"thanh pho ",
	"tp. ",
	"tp ",
	"quan ",
	"huyen ",
	"thi xa ",
	"thi tran ",
	"phuong ",
	"xa ",
}

// aliases maps normalized spellings to the canonical display name used as the
// key of the fee table. Covers the spellings the backend and the boundary API
// are known to emit.
var aliases = map[string]string{
	"ha noi":            "Hà Nội",
	"hanoi":             "Hà Nội",
	"ho chi minh":       "Hồ Chí Minh",
	"hochiminh":         "Hồ Chí Minh",
	"sai gon":           "Hồ Chí Minh",
	"saigon":            "Hồ Chí Minh",
	"hcm":               "Hồ Chí Minh",
	"da nang":           "Đà Nẵng",
	"danang":            "Đà Nẵng",
	"hai phong":         "Hải Phòng",
	"can tho":           "Cần Thơ",
	"hue":               "Thừa Thiên Huế",
	"thua thien hue":    "Thừa Thiên Huế",
	"thua thien - hue":  "Thừa Thiên Huế",
	"ba ria vung tau":   "Bà Rịa - Vũng Tàu",
	"ba ria - vung tau": "Bà Rịa - Vũng Tàu",
	"vung tau":          "Bà Rịa - Vũng Tàu",
	"bac ninh":          "Bắc Ninh",
	"bac giang":         "Bắc Giang",
	"hai duong":         "Hải Dương",
	"hung yen":          "Hưng Yên",
	"vinh phuc":         "Vĩnh Phúc",
	"quang ninh":        "Quảng Ninh",
	"thai nguyen":       "Thái Nguyên",
	"nam dinh":          "Nam Định",
	"ninh binh":         "Ninh Bình",
	"thanh hoa":         "Thanh Hóa",
	"nghe an":           "Nghệ An",
	"ha tinh":           "Hà Tĩnh",
	"quang binh":        "Quảng Bình",
	"quang tri":         "Quảng Trị",
	"quang nam":         "Quảng Nam",
	"quang ngai":        "Quảng Ngãi",
	"binh dinh":         "Bình Định",
	"phu yen":           "Phú Yên",
	"khanh hoa":         "Khánh Hòa",
	"nha trang":         "Khánh Hòa",
	"lam dong":          "Lâm Đồng",
	"da lat":            "Lâm Đồng",
	"dak lak":           "Đắk Lắk",
	"gia lai":           "Gia Lai",
	"binh duong":        "Bình Dương",
	"dong nai":          "Đồng Nai",
	"tay ninh":          "Tây Ninh",
	"long an":           "Long An",
	"tien giang":        "Tiền Giang",
	"ben tre":           "Bến Tre",
	"vinh long":         "Vĩnh Long",
	"dong thap":         "Đồng Tháp",
	"an giang":          "An Giang",
	"kien giang":        "Kiên Giang",
	"ca mau":            "Cà Mau",
	"soc trang":         "Sóc Trăng",
	"bac lieu":          "Bạc Liêu",
}

// Fold lower-cases, strips diacritics and leading administrative-unit
// prefixes and collapses whitespace. Two spellings of the same unit name fold
// to the same string, which is what the saved-address matching relies on.
func Fold(raw string) string {
	folded := stripDiacritics(strings.ToLower(raw))
	folded = strings.Join(strings.Fields(folded), " ")

	for _, prefix := range unitPrefixes {
		if strings.HasPrefix(folded, prefix) {
			folded = strings.TrimSpace(strings.TrimPrefix(folded, prefix))
			break
		}
	}
	return folded
}

// Normalize maps a raw province name, as received from the backend or the
// boundary API, to the canonical display name keyed in the fee table. Input
// that matches no alias is returned trimmed but otherwise unchanged, so an
// unmapped province degrades to the fallback quote instead of blocking
// checkout.
func Normalize(raw string) string {
	if canonical, ok := aliases[Fold(raw)]; ok {
		return canonical
	}
	return strings.TrimSpace(raw)
}

func stripDiacritics(s string) string {
	out, _, err := transform.String(foldMarks, s)
	if err != nil {
		return s
	}
	out = strings.ReplaceAll(out, "đ", "d")
	out = strings.ReplaceAll(out, "Đ", "D")
	return out
}
