package binder

import (
	"net/http"
	"reflect"
)

// Path returns a binder for route parameters read through extractor,
// which is chi.URLParam for chi routers.
//
//	r.Put("/admin/plan-limits/{planId}", handler.Wrap(h,
//		handler.WithBinders(binder.Path(chi.URLParam), binder.JSON()),
//	))
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		rv, err := structValue(v, ErrFailedToParsePath)
		if err != nil {
			return err
		}

		values := make(map[string][]string)
		eachTaggedField(rv, "path", func(_ reflect.Value, _ reflect.StructField, name string) {
			if val := extractor(r, name); val != "" {
				values[name] = []string{val}
			}
		})
		return bindToStruct(v, "path", values, ErrFailedToParsePath)
	}
}
