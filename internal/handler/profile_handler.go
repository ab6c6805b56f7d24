package handler

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/salonhub/internal/catalog"
	"github.com/hitoshi/salonhub/internal/middleware"
	"github.com/hitoshi/salonhub/internal/model"
	"github.com/hitoshi/salonhub/internal/profile"
	"github.com/hitoshi/salonhub/internal/route"
	"github.com/hitoshi/salonhub/internal/security"
)

// maxProfileBodyBytes はPATCH /api/profileのリクエストボディ上限。
const maxProfileBodyBytes = 64 << 10

// RoleLister はユーザーのロール一覧を返す。auth.Serviceが満たす。
type RoleLister interface {
	Roles(ctx context.Context, userID string) ([]model.Role, error)
}

// ProfileHandler はプロフィールの表示・更新のHTTPハンドラー。
// リクエストごとにprofile.Trackerを生成し、リクエスト終了時に閉じる。
type ProfileHandler struct {
	source    profile.Source
	roles     RoleLister
	renderer  *Renderer
	catalog   *catalog.Catalog
	sanitizer security.TextSanitizer
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(
	source profile.Source,
	roles RoleLister,
	renderer *Renderer,
	cat *catalog.Catalog,
	sanitizer security.TextSanitizer,
) *ProfileHandler {
	return &ProfileHandler{
		source:    source,
		roles:     roles,
		renderer:  renderer,
		catalog:   cat,
		sanitizer: sanitizer,
	}
}

type profileForm struct {
	FullName  string
	AvatarURL string
}

type settingsData struct {
	Form        profileForm
	Error       *model.APIError
	Business    catalog.Business
	Description template.HTML
}

// Settings はプロバイダー設定ページを表示する。
// GET /provider/settings
//
// プロフィールの取得に失敗した場合はフォームの代わりに再試行リンク付きのエラーを表示する。
func (h *ProfileHandler) Settings(w http.ResponseWriter, r *http.Request) {
	state := loadProfile(r, h.source)
	h.renderSettings(w, r, http.StatusOK, state, formFromProfile(state.Data), nil)
}

// UpdateSettings はフォームからプロフィールを部分更新する。
// POST /provider/settings
//
// 空のavatar_urlは「変更しない」として扱う。
// 検証エラーは入力値を保持したまま422で再表示し、成功時は設定ページへ303でリダイレクトする。
func (h *ProfileHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	tracker := profile.NewTracker(h.source)
	defer tracker.Close()

	tracker.Track(r.Context(), userID)
	state, err := tracker.Wait(r.Context())
	if err != nil || state.Err != nil {
		if err == nil {
			err = state.Err
		}
		slog.Error("failed to load profile for update",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		h.renderSettings(w, r, http.StatusInternalServerError, profile.State{Err: err}, profileForm{}, nil)
		return
	}

	form := profileForm{
		FullName:  r.PostFormValue("full_name"),
		AvatarURL: strings.TrimSpace(r.PostFormValue("avatar_url")),
	}
	var update model.ProfileUpdate
	if _, ok := r.PostForm["full_name"]; ok {
		update.FullName = &form.FullName
	}
	if form.AvatarURL != "" {
		update.AvatarURL = &form.AvatarURL
	}

	if _, err := tracker.Update(r.Context(), update); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			h.renderSettings(w, r, http.StatusUnprocessableEntity, tracker.State(), form, apiErr)
			return
		}
		slog.Error("failed to update profile",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		h.renderSettings(w, r, http.StatusInternalServerError, tracker.State(), form, &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  msgUnexpectedError,
			Category: "system",
		})
		return
	}

	setFlash(w, "success", "Profile updated")
	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}

func (h *ProfileHandler) renderSettings(w http.ResponseWriter, r *http.Request, status int, state profile.State, form profileForm, apiErr *model.APIError) {
	h.renderer.Render(w, r, status, PageData{
		Page:    route.PageProviderSettings,
		Profile: state,
		Data: settingsData{
			Form:        form,
			Error:       apiErr,
			Business:    h.catalog.Business,
			Description: template.HTML(h.sanitizer.Description(h.catalog.Business.Description)),
		},
	})
}

func formFromProfile(p *model.Profile) profileForm {
	var f profileForm
	if p == nil {
		return f
	}
	if p.FullName != nil {
		f.FullName = *p.FullName
	}
	if p.AvatarURL != nil {
		f.AvatarURL = *p.AvatarURL
	}
	return f
}

// profileResponse は/api/profileのレスポンス。
type profileResponse struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	FullName  *string      `json:"full_name"`
	AvatarURL *string      `json:"avatar_url"`
	UserType  string       `json:"user_type"`
	Roles     []model.Role `json:"roles"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// GetProfile はセッションユーザーのプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	state := loadProfile(r, h.source)
	if state.Err != nil {
		h.writeProfileError(w, state.Err)
		return
	}
	if state.Data == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	h.writeProfile(w, r, state.Data)
}

// PatchProfile はプロフィールを部分更新し、更新後のレコードを返す。
// PATCH /api/profile
func (h *ProfileHandler) PatchProfile(w http.ResponseWriter, r *http.Request) {
	var update model.ProfileUpdate
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProfileBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&update); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Request body must be a JSON object with full_name and/or avatar_url."))
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())

	tracker := profile.NewTracker(h.source)
	defer tracker.Close()

	tracker.Track(r.Context(), userID)
	p, err := tracker.Update(r.Context(), update)
	if err != nil {
		h.writeProfileError(w, err)
		return
	}
	h.writeProfile(w, r, p)
}

func (h *ProfileHandler) writeProfile(w http.ResponseWriter, r *http.Request, p *model.Profile) {
	roles, err := h.roles.Roles(r.Context(), p.ID)
	if err != nil {
		slog.Error("failed to list roles",
			slog.String("user_id", p.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if roles == nil {
		roles = []model.Role{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(profileResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		UserType:  string(p.UserType),
		Roles:     roles,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
}

// writeProfileError はサービス層のエラーを統一エラーフォーマットに変換する。
func (h *ProfileHandler) writeProfileError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	switch {
	case errors.As(err, &apiErr):
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
	case errors.Is(err, profile.ErrNotFound):
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewProfileNotFoundError())
	case errors.Is(err, profile.ErrNoSession):
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
	default:
		slog.Error("profile request failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
	}
}
