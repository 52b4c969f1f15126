package httphandler

import (
	"net/http"

	"github.com/chainguard-dev/clog"
	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

// Webhook event type names this service subscribes to.
const (
	eventPing        = "ping"
	eventPullRequest = "pull_request"
	eventCheckSuite  = "check_suite"
)

// Webhook validates a GitHub delivery, parses it and dispatches it for
// background processing. It answers before any processing starts.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := gh.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Warn("rejected webhook delivery", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	kind := gh.WebHookType(r)
	delivery := gh.DeliveryID(r)

	switch kind {
	case eventPing:
		writeJSON(w, http.StatusOK, WebhookResponse{Status: "pong", Delivery: delivery})
		return
	case eventPullRequest, eventCheckSuite:
	default:
		writeJSON(w, http.StatusAccepted, WebhookResponse{Status: "ignored", Delivery: delivery})
		return
	}

	raw, err := gh.ParseWebHook(kind, payload)
	if err != nil {
		h.logger.Warn("malformed webhook payload", "event", kind, "delivery", delivery, "error", err)
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	ev, ok := toEvent(raw, delivery)
	if !ok {
		writeJSON(w, http.StatusAccepted, WebhookResponse{Status: "ignored", Delivery: delivery})
		return
	}

	ctx := clog.WithLogger(r.Context(), clog.NewLogger(h.logger).With("delivery", delivery, "event", kind))
	h.events.Dispatch(ctx, ev)

	writeJSON(w, http.StatusAccepted, WebhookResponse{Status: "accepted", Delivery: delivery})
}

// toEvent converts a parsed go-github event into the domain event union.
func toEvent(raw any, delivery string) (model.Event, bool) {
	switch e := raw.(type) {
	case *gh.PullRequestEvent:
		pr := e.GetPullRequest()
		return model.PullRequestEvent{
			DeliveryID:     delivery,
			Action:         e.GetAction(),
			InstallationID: e.GetInstallation().GetID(),
			Payload: model.PullRequestPayload{
				Owner:            e.GetRepo().GetOwner().GetLogin(),
				Repo:             e.GetRepo().GetName(),
				Number:           pr.GetNumber(),
				HeadSHA:          pr.GetHead().GetSHA(),
				HeadRef:          pr.GetHead().GetRef(),
				HeadRepoFullName: pr.GetHead().GetRepo().GetFullName(),
				HTMLURL:          pr.GetHTMLURL(),
			},
		}, true

	case *gh.CheckSuiteEvent:
		suite := e.GetCheckSuite()
		numbers := make([]int, 0, len(suite.PullRequests))
		for _, pr := range suite.PullRequests {
			numbers = append(numbers, pr.GetNumber())
		}
		return model.CheckSuiteEvent{
			DeliveryID:     delivery,
			Action:         e.GetAction(),
			InstallationID: e.GetInstallation().GetID(),
			Owner:          e.GetRepo().GetOwner().GetLogin(),
			Repo:           e.GetRepo().GetName(),
			HeadSHA:        suite.GetHeadSHA(),
			PullNumbers:    numbers,
		}, true
	}
	return nil, false
}
