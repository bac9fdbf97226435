package domain

import "fmt"

// NumberKind はマッチした数値トークンの種類を表す。
type NumberKind string

const (
	// KindArabic は 1〜2 桁のアラビア数字トークン。
	KindArabic NumberKind = "Arabic"
	// KindChineseAge は「十六岁」のような漢数字 + 岁 のトークン。
	KindChineseAge NumberKind = "ChineseAge"
)

// NumberToken は走査中に見つかった数値の出現を表す。
// s[Start:End] == Text が常に成り立つ。
type NumberToken struct {
	// Text はマッチした部分文字列全体。ChineseAge の場合は単位の「岁」を含む。
	Text string
	// Numeral は数値部分のみの文字列。Arabic の場合は Text と同じ。
	Numeral string
	// Value は解析済みの整数値。
	Value int
	Kind  NumberKind
	// Start, End は元テキスト上のバイトオフセット（End は含まない）。
	Start int
	End   int
}

// String はデバッグ用の表現を返す。例: ChineseAge("十六岁"=16)[3:12]
func (t NumberToken) String() string {
	return fmt.Sprintf("%s(%q=%d)[%d:%d]", t.Kind, t.Text, t.Value, t.Start, t.End)
}

// EncodingRange は置換対象となる整数の閉区間 [Min, Max] を表す。
type EncodingRange struct {
	Min int
	Max int
}

const (
	// DefaultMinNumber は置換対象の下限の既定値。
	DefaultMinNumber = 1
	// DefaultMaxNumber は置換対象の上限の既定値。
	DefaultMaxNumber = 17

	// maxRangeBound より大きい値は 2 桁のトークンとして現れないため上限とする。
	maxRangeBound = 99
)

// DefaultRange は 1〜17 の既定範囲を返す。
func DefaultRange() EncodingRange {
	return EncodingRange{Min: DefaultMinNumber, Max: DefaultMaxNumber}
}

// NewEncodingRange は境界を検証したうえで EncodingRange を生成する。
func NewEncodingRange(lo, hi int) (EncodingRange, error) {
	r := EncodingRange{Min: lo, Max: hi}
	if err := r.Validate(); err != nil {
		return EncodingRange{}, err
	}
	return r, nil
}

// Validate は 0 <= Min <= Max <= 99 を満たさない場合にエラーを返す。
func (r EncodingRange) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("%w: min_number %d must not be negative", ErrInvalidRange, r.Min)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: min_number %d is greater than max_number %d", ErrInvalidRange, r.Min, r.Max)
	}
	if r.Max > maxRangeBound {
		return fmt.Errorf("%w: max_number %d exceeds %d", ErrInvalidRange, r.Max, maxRangeBound)
	}
	return nil
}

// Contains は n が範囲内であれば true を返す。
func (r EncodingRange) Contains(n int) bool {
	return r.Min <= n && n <= r.Max
}
