// Package catalog はページに表示するデモ用の固定データを提供する。
// データはバイナリに埋め込まれたYAMLから読み込まれる。
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var embedded []byte

// Storefront は公開ストアフロントの表示データ。
type Storefront struct {
	ID           string        `yaml:"-"`
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description"`
	CoverImage   string        `yaml:"cover_image"`
	Logo         string        `yaml:"logo"`
	Rating       float64       `yaml:"rating"`
	Reviews      int           `yaml:"reviews"`
	Location     string        `yaml:"location"`
	Hours        string        `yaml:"hours"`
	Phone        string        `yaml:"phone"`
	Plans        []Plan        `yaml:"-"`
	Gallery      []string      `yaml:"gallery"`
	Testimonials []Testimonial `yaml:"testimonials"`
}

// Plan はサブスクリプションプラン。
type Plan struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Price       int      `yaml:"price"`
	Interval    string   `yaml:"interval"`
	Description string   `yaml:"description"`
	Features    []string `yaml:"features"`
	Popular     bool     `yaml:"popular"`
	Active      bool     `yaml:"active"`
	Subscribers int      `yaml:"subscribers"`
}

// Testimonial は利用者の声。
type Testimonial struct {
	Name    string `yaml:"name"`
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
	Image   string `yaml:"image"`
}

// Stat はダッシュボードの統計カード。
type Stat struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Change string `yaml:"change"`
	Href   string `yaml:"href"`
}

// Positive は変化量が増加を示す場合にtrueを返す。
func (s Stat) Positive() bool {
	return !strings.HasPrefix(s.Change, "-")
}

// Customer はプロバイダーの顧客一覧の1行。
type Customer struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Phone        string `yaml:"phone"`
	Subscription string `yaml:"subscription"`
	Status       string `yaml:"status"`
	StartDate    string `yaml:"start_date"`
	LastVisit    string `yaml:"last_visit"`
	TotalSpent   int    `yaml:"total_spent"`
	Visits       int    `yaml:"visits"`
}

// CustomerSubscription は顧客が契約中のサブスクリプション。
type CustomerSubscription struct {
	Provider        string   `yaml:"provider"`
	Plan            string   `yaml:"plan"`
	Price           int      `yaml:"price"`
	NextPayment     string   `yaml:"next_payment"`
	Status          string   `yaml:"status"`
	VisitsRemaining int      `yaml:"visits_remaining"`
	NextVisit       string   `yaml:"next_visit"`
	Features        []string `yaml:"features"`
}

// Appointment は予約。
type Appointment struct {
	Provider string `yaml:"provider"`
	Service  string `yaml:"service"`
	Date     string `yaml:"date"`
	Time     string `yaml:"time"`
	Status   string `yaml:"status"`
}

// Payment は支払い履歴。
type Payment struct {
	Provider string `yaml:"provider"`
	Plan     string `yaml:"plan"`
	Amount   int    `yaml:"amount"`
	Date     string `yaml:"date"`
	Status   string `yaml:"status"`
}

// Business はプロバイダー設定画面の事業者情報。
type Business struct {
	Name        string `yaml:"name"`
	Email       string `yaml:"email"`
	Phone       string `yaml:"phone"`
	Address     string `yaml:"address"`
	City        string `yaml:"city"`
	State       string `yaml:"state"`
	ZipCode     string `yaml:"zip_code"`
	Website     string `yaml:"website"`
	Description string `yaml:"description"`
}

// OnboardingStep はオンボーディングウィザードの1ステップ。
type OnboardingStep struct {
	Title       string `yaml:"title"`
	Placeholder string `yaml:"placeholder"`
}

// CustomerSummary は顧客一覧の集計値。
type CustomerSummary struct {
	Total        int
	Active       int
	AverageValue int
	TotalRevenue int
}

// Catalog は全ページの固定データ。読み込み後は読み取り専用として扱う。
type Catalog struct {
	Storefront            Storefront             `yaml:"storefront"`
	Plans                 []Plan                 `yaml:"plans"`
	ProviderStats         []Stat                 `yaml:"provider_stats"`
	Customers             []Customer             `yaml:"customers"`
	CustomerStats         []Stat                 `yaml:"customer_stats"`
	CustomerSubscriptions []CustomerSubscription `yaml:"customer_subscriptions"`
	Appointments          []Appointment          `yaml:"appointments"`
	PaymentHistory        []Payment              `yaml:"payment_history"`
	Business              Business               `yaml:"business"`
	OnboardingSteps       []OnboardingStep       `yaml:"onboarding_steps"`
}

// Load は埋め込みYAMLからCatalogを読み込む。
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// Parse はYAMLをCatalogに変換する。未知のキーはエラーとする。
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.OnboardingSteps) == 0 {
		return nil, fmt.Errorf("catalog has no onboarding steps")
	}
	return &c, nil
}

// StorefrontFor はストアIDに対応するストアフロントを返す。
// 現時点ではIDに関わらずデモ店舗のデータを返し、IDのみ呼び出し元の値をそのまま設定する。
func (c *Catalog) StorefrontFor(storeID string) Storefront {
	s := c.Storefront
	s.ID = storeID
	s.Plans = c.Plans
	return s
}

// FilterCustomers は検索語とステータスで顧客を絞り込む。
// 検索語は名前・メールアドレス（大文字小文字を区別しない）と電話番号に部分一致する。
// statusが空または"all"の場合はステータスで絞り込まない。
func (c *Catalog) FilterCustomers(query, status string) []Customer {
	q := strings.ToLower(strings.TrimSpace(query))
	result := make([]Customer, 0, len(c.Customers))
	for _, cu := range c.Customers {
		if status != "" && status != "all" && cu.Status != status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(cu.Name), q) &&
			!strings.Contains(strings.ToLower(cu.Email), q) &&
			!strings.Contains(cu.Phone, q) {
			continue
		}
		result = append(result, cu)
	}
	return result
}

// FilterPlans はプラン名と説明の部分一致でプランを絞り込む。
func (c *Catalog) FilterPlans(query string) []Plan {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Plans
	}
	var result []Plan
	for _, p := range c.Plans {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			result = append(result, p)
		}
	}
	return result
}

// SummarizeCustomers は全顧客の集計値を返す。平均は四捨五入する。
func (c *Catalog) SummarizeCustomers() CustomerSummary {
	s := CustomerSummary{Total: len(c.Customers)}
	for _, cu := range c.Customers {
		if cu.Status == "active" {
			s.Active++
		}
		s.TotalRevenue += cu.TotalSpent
	}
	if s.Total > 0 {
		s.AverageValue = (s.TotalRevenue*2 + s.Total) / (s.Total * 2)
	}
	return s
}
