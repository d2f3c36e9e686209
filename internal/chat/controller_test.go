package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aigw/simplychat/internal/chat"
	"github.com/aigw/simplychat/internal/infrastructure/completion"
)

const greeting = "Welcome"

var _ = Describe("Controller", func() {
	var (
		server     *httptest.Server
		status     int
		body       string
		requests   []map[string]interface{}
		controller *chat.Controller
		conv       *chat.Conversation
	)

	BeforeEach(func() {
		status = http.StatusOK
		body = `{"model":"m","choices":[{"message":{"content":"Hi there"}}]}`
		requests = nil

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			var payload map[string]interface{}
			_ = json.Unmarshal(raw, &payload)
			requests = append(requests, payload)

			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))

		controller = chat.NewController(chat.Settings{
			Model:       "llama3",
			Temperature: 0.7,
			Greeting:    greeting,
		}, completion.NewClient(server.URL))

		conv = &chat.Conversation{}
		controller.Initialize(conv)
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Initialize", func() {
		It("seeds a new conversation with the greeting", func() {
			Expect(conv.Messages).To(Equal([]chat.Message{
				{Role: chat.RoleAssistant, Content: greeting},
			}))
		})

		It("leaves an existing conversation alone", func() {
			conv.Append(chat.Message{Role: chat.RoleUser, Content: "x"})
			controller.Initialize(conv)

			Expect(conv.Len()).To(Equal(2))
		})
	})

	Describe("Submit", func() {
		It("appends the prompt and the reply", func() {
			outcome, err := controller.Submit(context.Background(), conv, "Hello")
			Expect(err).NotTo(HaveOccurred())

			Expect(conv.Messages).To(Equal([]chat.Message{
				{Role: chat.RoleAssistant, Content: greeting},
				{Role: chat.RoleUser, Content: "Hello"},
				{Role: chat.RoleAssistant, Content: "Hi there"},
			}))
			Expect(outcome.Notices).To(ConsistOf(chat.Notice{Level: chat.NoticeInfo, Text: "LLM Model Used: m"}))
			Expect(outcome.HasErrors()).To(BeFalse())
		})

		It("sends only the newest prompt with the configured settings", func() {
			_, err := controller.Submit(context.Background(), conv, "first")
			Expect(err).NotTo(HaveOccurred())
			_, err = controller.Submit(context.Background(), conv, "second")
			Expect(err).NotTo(HaveOccurred())

			Expect(requests).To(HaveLen(2))
			last := requests[1]
			Expect(last["model"]).To(Equal("llama3"))
			Expect(last["temperature"]).To(BeNumerically("~", 0.7, 1e-6))
			Expect(last["messages"]).To(Equal([]interface{}{
				map[string]interface{}{"role": "user", "content": "second"},
			}))
		})

		It("appends one assistant message per valid choice", func() {
			body = `{"model":"m","choices":[{"message":{"content":"a"}},{"message":{}},{"message":{"content":"b"}}]}`

			outcome, err := controller.Submit(context.Background(), conv, "Hello")
			Expect(err).NotTo(HaveOccurred())

			Expect(conv.Count(chat.RoleAssistant)).To(Equal(3))
			Expect(outcome.Appended).To(HaveLen(3))
			Expect(outcome.Notices).To(ConsistOf(
				chat.Notice{Level: chat.NoticeInfo, Text: "LLM Model Used: m"},
				chat.Notice{Level: chat.NoticeWarning, Text: "Invalid format in API response: 'message' or 'content' not found."},
				chat.Notice{Level: chat.NoticeInfo, Text: "LLM Model Used: m"},
			))
		})

		It("reports an unknown model when the response omits it", func() {
			body = `{"choices":[{"message":{"content":"a"}}]}`

			outcome, err := controller.Submit(context.Background(), conv, "Hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Notices).To(ConsistOf(chat.Notice{Level: chat.NoticeInfo, Text: "LLM Model Used: Unknown Model"}))
		})

		It("warns when choices are missing", func() {
			body = `{"model":"m"}`

			outcome, err := controller.Submit(context.Background(), conv, "Hello")
			Expect(err).NotTo(HaveOccurred())

			Expect(conv.Len()).To(Equal(2))
			Expect(outcome.Notices).To(ConsistOf(chat.Notice{
				Level: chat.NoticeWarning,
				Text:  "Invalid format in API response: 'choices' not found.",
			}))
		})

		It("appends nothing for an empty choice list", func() {
			body = `{"model":"m","choices":[]}`

			outcome, err := controller.Submit(context.Background(), conv, "Hello")
			Expect(err).NotTo(HaveOccurred())

			Expect(conv.Len()).To(Equal(2))
			Expect(outcome.Notices).To(BeEmpty())
		})

		It("reports the status code of a failed request", func() {
			status = http.StatusInternalServerError
			body = "boom"

			outcome, err := controller.Submit(context.Background(), conv, "Hello")
			Expect(err).NotTo(HaveOccurred())

			Expect(conv.Messages[conv.Len()-1]).To(Equal(chat.Message{Role: chat.RoleUser, Content: "Hello"}))
			Expect(outcome.HasErrors()).To(BeTrue())
			Expect(outcome.Notices).To(HaveLen(1))
			Expect(outcome.Notices[0].Text).To(Equal("Unfortunately, I don't quite like your question. Please try again. My mood: 500"))
		})

		It("reports transport failures", func() {
			server.Close()

			outcome, err := controller.Submit(context.Background(), conv, "Hello")
			Expect(err).NotTo(HaveOccurred())

			Expect(conv.Len()).To(Equal(2))
			Expect(outcome.HasErrors()).To(BeTrue())
			Expect(outcome.Notices[0].Text).To(HavePrefix("Error sending request: "))
			Expect(outcome.Notices[0].Text).To(ContainSubstring("connection refused"))
		})

		It("rejects an empty prompt without touching the conversation", func() {
			_, err := controller.Submit(context.Background(), conv, "")
			Expect(err).To(MatchError(chat.ErrEmptyPrompt))
			Expect(conv.Len()).To(Equal(1))
			Expect(requests).To(BeEmpty())
		})

		It("rejects prompts over the length limit", func() {
			_, err := controller.Submit(context.Background(), conv, strings.Repeat("a", chat.MaxPromptLength+1))
			Expect(err).To(MatchError(chat.ErrPromptTooLong))
			Expect(conv.Len()).To(Equal(1))
		})

		It("counts characters rather than bytes", func() {
			_, err := controller.Submit(context.Background(), conv, strings.Repeat("é", chat.MaxPromptLength))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
