// Package handlers, local view bridge'in HTTP handler'larını barındırır.
//
// Thin handler pattern: sadece request parse + service çağrısı + response yazımı.
// Store aksiyonları error dönmez; başarısız aksiyonda handler store'un
// Error() alanını okuyup envelope'a yazar.
package handlers

import (
	"context"
	"net/http"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
)

// contextKey, context'te değer taşımak için özel key tipi.
type contextKey string

// UserContextKey, RequireSession middleware'ının context'e koyduğu oturum kullanıcısı.
const UserContextKey contextKey = "user"

// UserFromContext, middleware'ın eklediği kullanıcıyı döner.
func UserFromContext(ctx context.Context) (models.SessionUser, bool) {
	user, ok := ctx.Value(UserContextKey).(models.SessionUser)
	return user, ok
}

// writeFailure, başarısız store aksiyonunun hatasını yazar.
// Store hata kaydetmediyse (ör. logout ile düşen fetch) 409 döner.
func writeFailure(w http.ResponseWriter, err error) {
	if err == nil {
		pkg.ErrorWithMessage(w, http.StatusConflict, "action was superseded")
		return
	}
	pkg.Error(w, err)
}
