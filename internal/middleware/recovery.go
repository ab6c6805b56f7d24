package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はpanic発生時にプロセスクラッシュを防ぎ、500レスポンスを返すミドルウェアを生成する。
// fallbackが指定されていればエラーページの描画に使い、nilなら素の500を返す。
func NewRecoveryMiddleware(fallback ...http.Handler) func(next http.Handler) http.Handler {
	var errorPage http.Handler
	if len(fallback) > 0 {
		errorPage = fallback[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// クライアント切断による中断はnet/httpに任せる
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				slog.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				if errorPage == nil {
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				errorPage.ServeHTTP(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
