package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

func TestDefaultIsRussian(t *testing.T) {
	if Default() != language.Russian {
		t.Errorf("Expected default ru, got %s", Default())
	}
	if got := Printer(Default()).Sprintf(MsgAlreadyLiked); got != "Лайк уже поставлен" {
		t.Errorf("Unexpected default message %q", got)
	}
	if got := Printer(Default()).Sprintf(MsgNotLiked); got != "Лайк не был поставлен" {
		t.Errorf("Unexpected default message %q", got)
	}
}

func TestEnglishUsesKeys(t *testing.T) {
	if got := Printer(language.English).Sprintf(MsgAlreadyLiked); got != MsgAlreadyLiked {
		t.Errorf("Expected English key text, got %q", got)
	}
	if got := Printer(language.English).Sprintf(MsgMaxLength, 200); got != "Ensure this field has no more than 200 characters." {
		t.Errorf("Unexpected formatted message %q", got)
	}
}

func TestParseAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   language.Tag
	}{
		{"", language.Russian},
		{"en-US,en;q=0.9", language.English},
		{"ru-RU", language.Russian},
		{"de-DE", language.Russian},
		{"de;q=0.9,en;q=0.5", language.English},
		{"%%%", language.Russian},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := ParseAcceptLanguage(tt.header); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/msg", func(c *gin.Context) {
		c.String(http.StatusOK, T(c, MsgNotLiked))
	})

	tests := []struct {
		name   string
		path   string
		accept string
		cookie string
		want   string
	}{
		{"default", "/msg", "", "", "Лайк не был поставлен"},
		{"accept english", "/msg", "en", "", MsgNotLiked},
		{"query wins", "/msg?lang=ru", "en", "", "Лайк не был поставлен"},
		{"cookie", "/msg", "", "en", MsgNotLiked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookieName, Value: tt.cookie})
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			if resp.Body.String() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, resp.Body.String())
			}
		})
	}
}
