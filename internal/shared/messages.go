package shared

import (
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Boundary messages. The core reports structured error kinds; the translation
// to a human-readable sentence happens here so the wording stays swappable.

var boundaryCatalog = func() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	set := func(key, en, id string) {
		_ = b.SetString(language.English, key, en)
		_ = b.SetString(language.Indonesian, key, id)
	}

	set("err.not_found", "The requested record was not found.", "Data yang diminta tidak ditemukan.")
	set("err.inactive_actor", "The selected user account is inactive.", "Akun pengguna yang dipilih tidak aktif.")
	set("err.not_started", "The task has not been started yet.", "Tugas belum dimulai.")
	set("err.forbidden", "You are not allowed to perform this action.", "Anda tidak diizinkan melakukan aksi ini.")
	set("err.invalid_transition", "This status change is not allowed.", "Perubahan status ini tidak diizinkan.")
	set("err.insufficient_stock", "Stock is insufficient for the requested quantity.", "Stok tidak mencukupi untuk jumlah yang diminta.")
	set("err.internal", "Something went wrong. Please try again.", "Terjadi kesalahan. Silakan coba lagi.")

	return b
}()

// UserSafeMessage renders err as a localized sentence safe to show end users.
func UserSafeMessage(lang language.Tag, err error) string {
	p := message.NewPrinter(lang, message.Catalog(boundaryCatalog))
	switch {
	case errors.Is(err, ErrNotFound):
		return p.Sprintf("err.not_found")
	case errors.Is(err, ErrInactiveActor):
		return p.Sprintf("err.inactive_actor")
	case errors.Is(err, ErrNotStarted):
		return p.Sprintf("err.not_started")
	case errors.Is(err, ErrForbidden):
		return p.Sprintf("err.forbidden")
	case errors.Is(err, ErrInvalidTransition):
		return p.Sprintf("err.invalid_transition")
	case errors.Is(err, ErrInsufficientStock):
		return p.Sprintf("err.insufficient_stock")
	default:
		return p.Sprintf("err.internal")
	}
}
