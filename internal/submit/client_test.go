package submit

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/invoice-review/internal/intake"
)

var _ = Describe("NewClient", func() {
	It("should append the upload path to the base URL", func() {
		Expect(NewClient("http://ocr.local:8000/", 0).Endpoint()).To(Equal("http://ocr.local:8000/upload/"))
	})

	It("should default to the local service", func() {
		Expect(NewClient("", 0).Endpoint()).To(Equal("http://127.0.0.1:8000/upload/"))
	})
})

var _ = Describe("Client", func() {
	var (
		backend *ghttp.Server
		file    *intake.File
	)

	BeforeEach(func() {
		backend = ghttp.NewServer()
		file = &intake.File{Name: "invoice.png", ContentType: "image/png", Data: []byte("png bytes")}
	})

	AfterEach(func() {
		backend.Close()
	})

	DescribeTable("when the service returns an error status",
		func(status int, body string, expected string) {
			backend.AppendHandlers(ghttp.RespondWith(status, body))
			client := NewClient(backend.URL(), 0)
			_, err := client.Submit(context.Background(), file)

			var submitErr *Error
			Expect(errors.As(err, &submitErr)).To(BeTrue())
			Expect(submitErr.Kind).To(Equal(HTTP))
			Expect(submitErr.Status).To(Equal(status))
			Expect(submitErr.Error()).To(Equal(expected))
			Expect(backend.ReceivedRequests()).To(HaveLen(1))
		},
		Entry("400", http.StatusBadRequest, `{"detail":"File must be an image"}`,
			"Bad request: Please check if the uploaded file is a valid image format."),
		Entry("405", http.StatusMethodNotAllowed, "",
			"Method not allowed: Server method or CORS configuration issue."),
		Entry("500", http.StatusInternalServerError, `{"detail":"Processing error: boom"}`,
			"Server error: There was an issue processing your invoice."),
		Entry("other status with body", http.StatusBadGateway, "upstream down\n",
			"Server error (502): upstream down"),
		Entry("other status without body", http.StatusServiceUnavailable, "",
			"Server error (503): Unknown error"),
	)

	Describe("Submit", func() {
		var (
			timeout  time.Duration
			response *Response
			err      error
		)

		BeforeEach(func() {
			timeout = 0
		})

		JustBeforeEach(func() {
			client := NewClient(backend.URL(), timeout)
			response, err = client.Submit(context.Background(), file)
		})

		When("the service succeeds", func() {
			BeforeEach(func() {
				backend.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/upload/"),
					func(w http.ResponseWriter, r *http.Request) {
						Expect(r.Header.Get("Content-Type")).To(HavePrefix("multipart/form-data; boundary="))
						Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
						Expect(r.MultipartForm.File).To(HaveLen(1))
						f, header, err := r.FormFile("file")
						Expect(err).NotTo(HaveOccurred())
						defer f.Close()
						Expect(header.Filename).To(Equal("invoice.png"))
						Expect(header.Header.Get("Content-Type")).To(Equal("image/png"))
						data, err := io.ReadAll(f)
						Expect(err).NotTo(HaveOccurred())
						Expect(string(data)).To(Equal("png bytes"))
					},
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{
						"csv_data":               "Date,Amount\n2024-01-01,\"1,00\"\n",
						"annotated_image_base64": base64.StdEncoding.EncodeToString([]byte("jpeg bytes")),
					}),
				))
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the CSV unmodified", func() {
				Expect(response.RawCSV).To(Equal("Date,Amount\n2024-01-01,\"1,00\"\n"))
			})

			It("should decode the annotated image", func() {
				Expect(string(response.AnnotatedImage)).To(Equal("jpeg bytes"))
			})

			It("should make exactly one request", func() {
				Expect(backend.ReceivedRequests()).To(HaveLen(1))
			})
		})

		When("the success body is not JSON", func() {
			BeforeEach(func() {
				backend.AppendHandlers(ghttp.RespondWith(http.StatusOK, "<html>oops</html>"))
			})

			It("should classify the error as a malformed response", func() {
				var submitErr *Error
				Expect(errors.As(err, &submitErr)).To(BeTrue())
				Expect(submitErr.Kind).To(Equal(MalformedResponse))
				Expect(submitErr.Error()).To(HavePrefix("Invalid response from server"))
			})
		})

		When("the success body is missing csv_data", func() {
			BeforeEach(func() {
				backend.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{
					"annotated_image_base64": "",
				}))
			})

			It("should classify the error as a malformed response", func() {
				var submitErr *Error
				Expect(errors.As(err, &submitErr)).To(BeTrue())
				Expect(submitErr.Kind).To(Equal(MalformedResponse))
				Expect(submitErr.Error()).To(ContainSubstring("csv_data"))
			})
		})

		When("the annotated image is not valid base64", func() {
			BeforeEach(func() {
				backend.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{
					"csv_data":               "a,b\n1,2",
					"annotated_image_base64": "***",
				}))
			})

			It("should classify the error as a malformed response", func() {
				var submitErr *Error
				Expect(errors.As(err, &submitErr)).To(BeTrue())
				Expect(submitErr.Kind).To(Equal(MalformedResponse))
			})
		})

		When("the service cannot be reached", func() {
			BeforeEach(func() {
				backend.Close()
			})

			It("should classify the error as unreachable", func() {
				var submitErr *Error
				Expect(errors.As(err, &submitErr)).To(BeTrue())
				Expect(submitErr.Kind).To(Equal(Unreachable))
			})

			It("should tell the user the server cannot be reached", func() {
				Expect(err.Error()).To(HavePrefix("Cannot connect to server."))
				Expect(err.Error()).To(ContainSubstring(backend.URL() + "/upload/"))
			})

			It("should keep the transport error", func() {
				Expect(errors.Unwrap(err)).NotTo(BeNil())
			})
		})

		When("the service does not answer within the timeout", func() {
			BeforeEach(func() {
				timeout = 50 * time.Millisecond
				backend.AppendHandlers(func(w http.ResponseWriter, r *http.Request) {
					time.Sleep(300 * time.Millisecond)
				})
			})

			It("should classify the error as a timeout", func() {
				var submitErr *Error
				Expect(errors.As(err, &submitErr)).To(BeTrue())
				Expect(submitErr.Kind).To(Equal(Timeout))
				Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			})
		})

		When("the file name contains quotes", func() {
			BeforeEach(func() {
				file = &intake.File{Name: `my "best" invoice.jpg`, ContentType: "image/jpeg", Data: []byte("x")}
				backend.AppendHandlers(ghttp.CombineHandlers(
					func(w http.ResponseWriter, r *http.Request) {
						_, header, err := r.FormFile("file")
						Expect(err).NotTo(HaveOccurred())
						Expect(strings.Contains(header.Filename, "best")).To(BeTrue())
					},
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{
						"csv_data":               "a\n1",
						"annotated_image_base64": "",
					}),
				))
			})

			It("should still upload", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(response.AnnotatedImage).To(BeEmpty())
			})
		})
	})
})

var _ = Describe("Kind", func() {
	It("should have readable names", func() {
		Expect(Unreachable.String()).To(Equal("unreachable"))
		Expect(HTTP.String()).To(Equal("http"))
		Expect(MalformedResponse.String()).To(Equal("malformed_response"))
		Expect(Timeout.String()).To(Equal("timeout"))
	})
})
