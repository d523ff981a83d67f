package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateFormat はフィルタ日付の書式(暦日)です
const DateFormat = "2006-01-02"

// RawFilterInput はトランスポート層から受け取る未検証のフィルタ入力を表します。
// すべて文字列のまま保持し、解釈は ParseFilterSpec が行います。
type RawFilterInput struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Companies string `json:"companies"`
	MinPrice  string `json:"min_price"`
	MaxPrice  string `json:"max_price"`
}

// FilterSpec は検証・正規化済みのフィルタ条件を表します。
// タスクに添付された後は不変として扱います。
type FilterSpec struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Companies []string   `json:"companies,omitempty"`
	MinPrice  *float64   `json:"min_price,omitempty"`
	MaxPrice  *float64   `json:"max_price,omitempty"`
}

// ParseFilterSpec は未検証の入力を検証し、正規化済みの FilterSpec を返します。
// 各項目の単体検証(ErrInvalidFilter)をすべて行った後に、項目間の範囲検証
// (ErrInvalidFilterRange)を行います。副作用はありません。
func ParseFilterSpec(raw RawFilterInput) (FilterSpec, error) {
	var spec FilterSpec

	startDate, err := parseDate("start_date", raw.StartDate)
	if err != nil {
		return FilterSpec{}, err
	}
	spec.StartDate = startDate

	endDate, err := parseDate("end_date", raw.EndDate)
	if err != nil {
		return FilterSpec{}, err
	}
	spec.EndDate = endDate

	spec.Companies = splitCompanies(raw.Companies)

	minPrice, err := parsePrice("min_price", raw.MinPrice)
	if err != nil {
		return FilterSpec{}, err
	}
	spec.MinPrice = minPrice

	maxPrice, err := parsePrice("max_price", raw.MaxPrice)
	if err != nil {
		return FilterSpec{}, err
	}
	spec.MaxPrice = maxPrice

	// 項目間の整合性検証
	if spec.StartDate != nil && spec.EndDate != nil && spec.StartDate.After(*spec.EndDate) {
		return FilterSpec{}, fmt.Errorf("start_date %s is after end_date %s: %w",
			spec.StartDate.Format(DateFormat), spec.EndDate.Format(DateFormat), ErrInvalidFilterRange)
	}
	if spec.MinPrice != nil && spec.MaxPrice != nil && *spec.MinPrice > *spec.MaxPrice {
		return FilterSpec{}, fmt.Errorf("min_price %g is greater than max_price %g: %w",
			*spec.MinPrice, *spec.MaxPrice, ErrInvalidFilterRange)
	}

	return spec, nil
}

// parseDate は YYYY-MM-DD 形式の暦日を解釈します。空文字列は「指定なし」です。
func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateFormat, value)
	if err != nil {
		return nil, fmt.Errorf("%s %q is not a YYYY-MM-DD date: %w", field, value, ErrInvalidFilter)
	}
	return &t, nil
}

// parsePrice は非負の有限数を解釈します。空文字列は「指定なし」です。
func parsePrice(field, value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s %q is not a finite number: %w", field, value, ErrInvalidFilter)
	}
	if f < 0 {
		return nil, fmt.Errorf("%s %q must be non-negative: %w", field, value, ErrInvalidFilter)
	}
	return &f, nil
}

// splitCompanies はカンマ区切りの会社名を分割します。
// 各トークンをトリムし、空になったトークンは捨てます。重複は除去しません
// (一致判定にしか使わないため保存形を気にする必要がない)。
func splitCompanies(value string) []string {
	if value == "" {
		return nil
	}
	var companies []string
	for _, token := range strings.Split(value, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		companies = append(companies, token)
	}
	return companies
}

// Apply は行の並び順を保ったまま、条件に一致する行だけを返します。
// 会社名の照合は大文字小文字を区別しません。日付・価格の境界は両端を含みます。
func (f FilterSpec) Apply(rows []DatasetRow) []DatasetRow {
	companySet := toLowerSet(f.Companies)

	matched := make([]DatasetRow, 0, len(rows))
	for _, row := range rows {
		if f.matches(row, companySet) {
			matched = append(matched, row)
		}
	}
	return matched
}

// matches は1行がすべてのフィルタ条件を満たすかを判定します。
// 境界値が指定されている場合、対応する値を持たない行は一致しません。
func (f FilterSpec) matches(row DatasetRow, companySet map[string]bool) bool {
	if f.StartDate != nil || f.EndDate != nil {
		if row.SaleDate == nil {
			return false
		}
		if f.StartDate != nil && row.SaleDate.Before(*f.StartDate) {
			return false
		}
		if f.EndDate != nil && row.SaleDate.After(*f.EndDate) {
			return false
		}
	}

	if len(companySet) > 0 && !companySet[strings.ToLower(row.Company)] {
		return false
	}

	if f.MinPrice != nil || f.MaxPrice != nil {
		if row.Price == nil {
			return false
		}
		if f.MinPrice != nil && *row.Price < *f.MinPrice {
			return false
		}
		if f.MaxPrice != nil && *row.Price > *f.MaxPrice {
			return false
		}
	}

	return true
}

// toLowerSet は文字列スライスを小文字の検索セットに変換します
func toLowerSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}

// clone は FilterSpec の独立したコピーを返します
func (f FilterSpec) clone() FilterSpec {
	c := f
	if f.StartDate != nil {
		t := *f.StartDate
		c.StartDate = &t
	}
	if f.EndDate != nil {
		t := *f.EndDate
		c.EndDate = &t
	}
	if f.Companies != nil {
		c.Companies = append([]string(nil), f.Companies...)
	}
	if f.MinPrice != nil {
		v := *f.MinPrice
		c.MinPrice = &v
	}
	if f.MaxPrice != nil {
		v := *f.MaxPrice
		c.MaxPrice = &v
	}
	return c
}
