package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bridgelabs/wawoot/internal/chatwoot"
)

// resolution is the platform destination for one counterpart identity.
type resolution struct {
	contactID      int
	sourceID       string
	conversationID int
}

// resolver maps a counterpart phone number to its contact and open
// conversation, creating both when absent. Results are cached per identity
// so the chain runs once per counterpart per engine lifetime.
type resolver struct {
	agent           AgentAPI
	public          PublicAPI
	inboxIdentifier string
	log             *slog.Logger

	cache map[string]resolution
}

func newResolver(agent AgentAPI, public PublicAPI, inboxIdentifier string, log *slog.Logger) *resolver {
	return &resolver{
		agent:           agent,
		public:          public,
		inboxIdentifier: inboxIdentifier,
		log:             log,
		cache:           make(map[string]resolution),
	}
}

// resolve runs the identity chain: search, create when missing, re-search
// for the routing id, then find or create the conversation. When several
// conversations exist the first one in platform order wins so history stays
// in one thread.
func (r *resolver) resolve(ctx context.Context, phone, name string) (resolution, error) {
	if res, ok := r.cache[phone]; ok {
		return res, nil
	}

	contact, err := r.findContact(ctx, phone)
	if err != nil {
		return resolution{}, err
	}
	if contact == nil {
		if err := r.createContact(ctx, phone, name); err != nil {
			return resolution{}, err
		}
		// The create response does not carry the routing id, so search
		// again for the full record.
		contact, err = r.findContact(ctx, phone)
		if err != nil {
			return resolution{}, err
		}
		if contact == nil {
			return resolution{}, fmt.Errorf("contact %s not found after create", phone)
		}
	}

	sourceID := r.sourceIDFor(contact)
	if sourceID == "" {
		return resolution{}, fmt.Errorf("contact %d has no inbox registration", contact.ID)
	}

	convID, err := r.findConversation(ctx, contact.ID)
	if err != nil {
		return resolution{}, err
	}
	if convID == 0 {
		conv, err := r.public.CreateConversation(ctx, r.inboxIdentifier, sourceID)
		if err != nil {
			return resolution{}, fmt.Errorf("create conversation: %w", err)
		}
		convID = conv.ID
		r.log.Info("conversation created", "contact", contact.ID, "conversation", convID)
	}

	res := resolution{contactID: contact.ID, sourceID: sourceID, conversationID: convID}
	r.cache[phone] = res
	return res, nil
}

// lookup resolves an identity without creating anything. Self messages use
// it: a message the operator sent from the phone only mirrors into a
// conversation that already exists. Returns nil when the contact or its
// conversation is missing.
func (r *resolver) lookup(ctx context.Context, phone string) (*resolution, error) {
	if res, ok := r.cache[phone]; ok {
		return &res, nil
	}

	contact, err := r.findContact(ctx, phone)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, nil
	}
	sourceID := r.sourceIDFor(contact)
	if sourceID == "" {
		return nil, nil
	}
	convID, err := r.findConversation(ctx, contact.ID)
	if err != nil {
		return nil, err
	}
	if convID == 0 {
		return nil, nil
	}

	res := resolution{contactID: contact.ID, sourceID: sourceID, conversationID: convID}
	r.cache[phone] = res
	return &res, nil
}

// invalidate drops a cached identity, used when a post against the cached
// conversation fails and a remote re-lookup is needed.
func (r *resolver) invalidate(phone string) {
	delete(r.cache, phone)
}

func (r *resolver) findContact(ctx context.Context, phone string) (*chatwoot.Contact, error) {
	contacts, err := r.agent.SearchContacts(ctx, "+"+phone)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	for i := range contacts {
		c := &contacts[i]
		if strings.TrimPrefix(c.PhoneNumber, "+") == phone || c.Identifier == phone {
			return c, nil
		}
	}
	return nil, nil
}

func (r *resolver) createContact(ctx context.Context, phone, name string) error {
	if name == "" {
		name = "+" + phone
	}
	_, err := r.public.CreateContact(ctx, r.inboxIdentifier, chatwoot.NewContact{
		Identifier:  phone,
		Name:        name,
		PhoneNumber: "+" + phone,
	})
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	r.log.Info("contact created", "phone", phone)
	return nil
}

// sourceIDFor picks the routing id for the configured inbox, falling back
// to the first registration when the search response omits inbox details.
func (r *resolver) sourceIDFor(contact *chatwoot.Contact) string {
	for _, ci := range contact.ContactInboxes {
		if ci.Inbox != nil && ci.Inbox.Identifier == r.inboxIdentifier {
			return ci.SourceID
		}
	}
	for _, ci := range contact.ContactInboxes {
		if ci.SourceID != "" {
			return ci.SourceID
		}
	}
	return ""
}

func (r *resolver) findConversation(ctx context.Context, contactID int) (int, error) {
	convs, err := r.agent.ContactConversations(ctx, contactID)
	if err != nil {
		return 0, fmt.Errorf("list contact conversations: %w", err)
	}
	if len(convs) == 0 {
		return 0, nil
	}
	// The first entry in platform order is the thread for this contact,
	// whatever its status; picking by recency would split history across
	// threads.
	return convs[0].ID, nil
}
