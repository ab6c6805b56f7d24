// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/salonhub/internal/catalog"
	"github.com/hitoshi/salonhub/internal/middleware"
	"github.com/hitoshi/salonhub/internal/profile"
	"github.com/hitoshi/salonhub/internal/route"
	"github.com/hitoshi/salonhub/internal/security"
)

// customerStatuses は顧客一覧のステータス絞り込みの選択肢。
var customerStatuses = []string{"all", "active", "inactive", "pending"}

// StorefrontResolver はストアIDからストアフロントの表示データを解決する。
type StorefrontResolver interface {
	StorefrontFor(storeID string) catalog.Storefront
}

// PageHandler は表示専用ページのHTTPハンドラー。
type PageHandler struct {
	renderer    *Renderer
	catalog     *catalog.Catalog
	storefronts StorefrontResolver
	sanitizer   security.TextSanitizer
	profiles    profile.Source
}

// NewPageHandler はPageHandlerを生成する。storefrontsがnilの場合はcatalogで解決する。
func NewPageHandler(
	renderer *Renderer,
	cat *catalog.Catalog,
	storefronts StorefrontResolver,
	sanitizer security.TextSanitizer,
	profiles profile.Source,
) *PageHandler {
	if storefronts == nil {
		storefronts = cat
	}
	return &PageHandler{
		renderer:    renderer,
		catalog:     cat,
		storefronts: storefronts,
		sanitizer:   sanitizer,
		profiles:    profiles,
	}
}

type landingData struct {
	Plans        []catalog.Plan
	Testimonials []catalog.Testimonial
}

// Landing はトップページを表示する。
// GET /
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, PageData{
		Page: route.PageLanding,
		Data: landingData{Plans: h.catalog.Plans, Testimonials: h.catalog.Storefront.Testimonials},
	})
}

type storefrontData struct {
	Store       catalog.Storefront
	Description template.HTML
}

// Storefront は公開ストアフロントを表示する。storeIdは加工せずにそのまま解決に渡す。
// GET /s/{storeId}
func (h *PageHandler) Storefront(w http.ResponseWriter, r *http.Request) {
	store := h.storefronts.StorefrontFor(chi.URLParam(r, "storeId"))
	h.renderer.Render(w, r, http.StatusOK, PageData{
		Page:  route.PageStorefront,
		Title: store.Name,
		Data: storefrontData{
			Store:       store,
			Description: template.HTML(h.sanitizer.Description(store.Description)),
		},
	})
}

type onboardingData struct {
	Steps   []catalog.OnboardingStep
	Step    catalog.OnboardingStep
	Current int
	First   bool
	Last    bool
}

// Onboarding はオンボーディングウィザードの現在のステップを表示する。
// GET /auth/onboarding?step=N
func (h *PageHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	current := h.clampStep(r.URL.Query().Get("step"))
	steps := h.catalog.OnboardingSteps
	h.renderer.Render(w, r, http.StatusOK, PageData{
		Page: route.PageOnboarding,
		Data: onboardingData{
			Steps:   steps,
			Step:    steps[current],
			Current: current,
			First:   current == 0,
			Last:    current == len(steps)-1,
		},
	})
}

// OnboardingStep はウィザードのステップを前後に移動する。範囲外には移動しない。
// POST /auth/onboarding
func (h *PageHandler) OnboardingStep(w http.ResponseWriter, r *http.Request) {
	current := h.clampStep(r.PostFormValue("step"))
	switch r.PostFormValue("action") {
	case "next":
		current = h.clampStep(strconv.Itoa(current + 1))
	case "back":
		current = h.clampStep(strconv.Itoa(current - 1))
	}
	http.Redirect(w, r, "/auth/onboarding?step="+strconv.Itoa(current), http.StatusSeeOther)
}

func (h *PageHandler) clampStep(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	if last := len(h.catalog.OnboardingSteps) - 1; n > last {
		return last
	}
	return n
}

type statsData struct {
	Stats []catalog.Stat
}

// ProviderDashboard はプロバイダーのダッシュボードを表示する。
// GET /provider/dashboard
func (h *PageHandler) ProviderDashboard(w http.ResponseWriter, r *http.Request) {
	h.workspace(w, r, route.PageProviderDashboard, statsData{Stats: h.catalog.ProviderStats})
}

type planListData struct {
	Query string
	Plans []catalog.Plan
}

// ProviderSubscriptions はプラン一覧を表示する。
// GET /provider/subscriptions?q=
func (h *PageHandler) ProviderSubscriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	h.workspace(w, r, route.PageProviderSubscriptions, planListData{Query: q, Plans: h.catalog.FilterPlans(q)})
}

type customerListData struct {
	Query     string
	Status    string
	Statuses  []string
	Customers []catalog.Customer
	Summary   catalog.CustomerSummary
}

// ProviderCustomers は顧客一覧を表示する。集計値は絞り込みに関わらず全顧客が対象。
// GET /provider/customers?q=&status=
func (h *PageHandler) ProviderCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "all"
	}
	h.workspace(w, r, route.PageProviderCustomers, customerListData{
		Query:     q,
		Status:    status,
		Statuses:  customerStatuses,
		Customers: h.catalog.FilterCustomers(q, status),
		Summary:   h.catalog.SummarizeCustomers(),
	})
}

type customerDashboardData struct {
	Stats         []catalog.Stat
	Appointments  []catalog.Appointment
	Subscriptions []catalog.CustomerSubscription
}

// CustomerDashboard は顧客のダッシュボードを表示する。
// GET /customer/dashboard
func (h *PageHandler) CustomerDashboard(w http.ResponseWriter, r *http.Request) {
	h.workspace(w, r, route.PageCustomerDashboard, customerDashboardData{
		Stats:         h.catalog.CustomerStats,
		Appointments:  h.catalog.Appointments,
		Subscriptions: h.catalog.CustomerSubscriptions,
	})
}

type customerSubscriptionsData struct {
	Subscriptions []catalog.CustomerSubscription
	Payments      []catalog.Payment
}

// CustomerSubscriptions は顧客の契約中サブスクリプションと支払い履歴を表示する。
// GET /customer/subscriptions
func (h *PageHandler) CustomerSubscriptions(w http.ResponseWriter, r *http.Request) {
	h.workspace(w, r, route.PageCustomerSubscriptions, customerSubscriptionsData{
		Subscriptions: h.catalog.CustomerSubscriptions,
		Payments:      h.catalog.PaymentHistory,
	})
}

// NotFound は一致しないパスを処理する。
// 末尾スラッシュ付きなど正規パスへのリダイレクトがあれば302、なければNotFoundページを404で返す。
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	m := route.Resolve(r.URL.Path)
	if m.IsRedirect() && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		redirectFound(w, m.RedirectTo)
		return
	}
	h.renderer.Render(w, r, http.StatusNotFound, PageData{Page: route.PageNotFound})
}

// Forbidden はワークスペースの種別が一致しない場合のページを表示する。
func (h *PageHandler) Forbidden(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusForbidden, PageData{Page: pageForbidden})
}

// ServerError はパニックから復帰した際のページを表示する。
func (h *PageHandler) ServerError(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusInternalServerError, PageData{Page: pageServerError})
}

// workspace はセッションユーザーのプロフィールを読み込んでワークスペースのページを描画する。
func (h *PageHandler) workspace(w http.ResponseWriter, r *http.Request, page route.Page, data any) {
	h.renderer.Render(w, r, http.StatusOK, PageData{
		Page:    page,
		Profile: loadProfile(r, h.profiles),
		Data:    data,
	})
}

// loadProfile はリクエスト単位のTrackerでセッションユーザーのプロフィールを取得する。
// Trackerはリクエストの終了時に閉じられ、進行中の取得はキャンセルされる。
func loadProfile(r *http.Request, source profile.Source) profile.State {
	if source == nil {
		return profile.State{}
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	tracker := profile.NewTracker(source)
	defer tracker.Close()

	tracker.Track(r.Context(), userID)
	state, err := tracker.Wait(r.Context())
	if err != nil {
		return profile.State{Err: err}
	}
	return state
}
