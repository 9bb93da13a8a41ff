package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given docs routes on a mux", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()
		Register(ctx, mux)

		serve := func(method, path string, header http.Header) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, path, http.NoBody)
			for k, v := range header {
				req.Header[k] = v
			}
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		convey.Convey("When fetching the OpenAPI document", func() {
			w := serve(http.MethodGet, "/openapi.yaml", nil)

			convey.Convey("Then it should describe the verification endpoints", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "/verify/quiz:")
				convey.So(w.Header().Get("ETag"), convey.ShouldNotBeEmpty)
			})

			convey.Convey("And a revalidation with the same ETag should be not modified", func() {
				again := serve(http.MethodGet, "/openapi.yaml", http.Header{"If-None-Match": {w.Header().Get("ETag")}})
				convey.So(again.Code, convey.ShouldEqual, http.StatusNotModified)
				convey.So(again.Body.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When fetching the ReDoc page", func() {
			w := serve(http.MethodGet, "/api-docs", nil)

			convey.Convey("Then it should render the container", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "redoc-container")
			})
		})

		convey.Convey("When using HEAD", func() {
			w := serve(http.MethodHead, "/api-docs", nil)

			convey.Convey("Then headers should be sent without a body", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When posting to a docs route", func() {
			w := serve(http.MethodPost, "/openapi.yaml", nil)

			convey.Convey("Then it should be rejected", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusMethodNotAllowed)
				convey.So(w.Header().Get("Allow"), convey.ShouldEqual, "GET, HEAD")
			})
		})
	})

	convey.Convey("Given a nil mux", t, func() {
		convey.So(func() { Register(context.Background(), nil) }, convey.ShouldPanic)
	})
}
