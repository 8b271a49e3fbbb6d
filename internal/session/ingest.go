// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package session

import (
	"encoding/json"
	"net"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/stoneguard/waf/internal/config"
	"github.com/stoneguard/waf/internal/request"
	"github.com/stoneguard/waf/internal/tagging"
)

// requestDocument is the typed view of the encoded request document, used for
// validation and to derive the request info. The raw decoded map is stored
// alongside so that serialization can hand back the document exactly as it
// came in, extra fields included.
type requestDocument struct {
	Headers map[string]string `json:"headers"`
	Cookies map[string]string `json:"cookies"`
	Args    map[string]string `json:"args"`
	Attrs   requestAttrs      `json:"attrs"`
}

type requestAttrs struct {
	Path      string  `json:"path"`
	Method    string  `json:"method"`
	IP        string  `json:"ip"`
	Query     string  `json:"query"`
	Authority *string `json:"authority"`
	URI       string  `json:"uri"`
	// Tags are the pre-existing tag annotations of the document. Only the key
	// presence matters; the values are ignored.
	Tags map[string]json.RawMessage `json:"tags"`
}

// SessionInit decodes, validates and registers a request document. It returns
// the id of the created session. The three per-session stores the stages read
// are populated atomically: no concurrent observer can see the session in one
// store and miss it in another.
func (h *Hub) SessionInit(encoded []byte) (uuid.UUID, error) {
	var doc requestDocument
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return uuid.UUID{}, &MalformedDocumentError{Err: err}
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return uuid.UUID{}, &MalformedDocumentError{Err: err}
	}
	if err := validateDocument(&doc); err != nil {
		return uuid.UUID{}, &MalformedDocumentError{Err: err}
	}

	info := deriveInfo(&doc)
	// Geo resolution is best effort: before the first configuration load the
	// location simply stays empty.
	if info.ClientIP != nil {
		err := h.withConfig(func(cfg *config.SecurityConfig) error {
			info.Geo = cfg.Geo.Resolve(info.ClientIP)
			return nil
		})
		if err != nil && !errors.Is(err, config.ErrNotLoaded) {
			return uuid.UUID{}, err
		}
	}

	id := uuid.New()

	h.raw.mu.Lock()
	defer h.raw.mu.Unlock()
	h.infos.mu.Lock()
	defer h.infos.mu.Unlock()
	h.tags.mu.Lock()
	defer h.tags.mu.Unlock()
	h.raw.entries[id] = raw
	h.infos.entries[id] = info
	h.tags.entries[id] = seedTags(&doc)

	h.logger.Debugf("session: created session `%s` for %s %s", id, info.Method, info.URI)
	return id, nil
}

// seedTags builds the initial session tag set from the names of the
// document's own tag annotations.
func seedTags(doc *requestDocument) tagging.Tags {
	tags := tagging.NewTags()
	for name := range doc.Attrs.Tags {
		tags.Add(name)
	}
	return tags
}

func validateDocument(doc *requestDocument) error {
	switch {
	case doc.Attrs.Path == "":
		return errors.New("missing required attribute `path`")
	case doc.Attrs.Method == "":
		return errors.New("missing required attribute `method`")
	case doc.Attrs.IP == "":
		return errors.New("missing required attribute `ip`")
	case doc.Attrs.URI == "":
		return errors.New("missing required attribute `uri`")
	}
	return nil
}

func deriveInfo(doc *requestDocument) *request.Info {
	info := &request.Info{
		Headers:  request.Fields{},
		Cookies:  request.Fields{},
		Args:     request.Fields{},
		Method:   doc.Attrs.Method,
		Path:     doc.Attrs.Path,
		RawQuery: doc.Attrs.Query,
		URI:      doc.Attrs.URI,
	}
	for k, v := range doc.Headers {
		info.Headers[k] = v
	}
	for k, v := range doc.Cookies {
		info.Cookies[k] = v
	}
	for k, v := range doc.Args {
		info.Args[k] = v
	}

	if doc.Attrs.Authority != nil {
		info.Authority = *doc.Attrs.Authority
	}
	// Host precedence: the host header wins over the authority; a request
	// carrying neither resolves to the unknown-host marker.
	switch {
	case info.Headers["host"] != "":
		info.Host = info.Headers["host"]
	case info.Authority != "":
		info.Host = info.Authority
	default:
		info.Host = request.UnknownHost
	}

	// An unparsable client address is tolerated: address-based rules simply do
	// not match the request.
	info.ClientIP = net.ParseIP(doc.Attrs.IP)

	return info
}

// SessionSerializeRequestMap returns the JSON-encodable request document of
// the session, with the `tags` attribute refreshed from the live tag set.
// Only the top level and the attrs map are copied; the session keeps owning
// the nested sections, which the engine never mutates.
func (h *Hub) SessionSerializeRequestMap(id string) (map[string]interface{}, error) {
	parsed, err := parseSessionID(id)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	err = h.withRawDocument(parsed, func(raw map[string]interface{}) error {
		doc = make(map[string]interface{}, len(raw))
		for k, v := range raw {
			doc[k] = v
		}
		attrs := make(map[string]interface{})
		if orig, ok := raw["attrs"].(map[string]interface{}); ok {
			for k, v := range orig {
				attrs[k] = v
			}
		}
		doc["attrs"] = attrs
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = h.withTags(parsed, func(tags tagging.Tags) error {
		doc["attrs"].(map[string]interface{})["tags"] = tags.PresenceMap()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// CleanSession tears down every store entry of the session. Cleaning an
// already-cleaned or never-created session is a no-op.
func (h *Hub) CleanSession(id string) error {
	parsed, err := parseSessionID(id)
	if err != nil {
		return err
	}
	h.raw.remove(parsed)
	h.infos.remove(parsed)
	h.policies.remove(parsed)
	h.tags.remove(parsed)
	h.logger.Debugf("session: removed session `%s`", parsed)
	return nil
}
