// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/mux"

	"github.com/dtn7/bpnode-go/pkg/bpv7"
)

// RestAgent is a RESTful ApplicationAgent for simple bundle dispatching over HTTP.
//
// Clients register an endpoint ID over /register and receive a UUID in exchange. This UUID
// authenticates the subsequent calls: /fetch empties the client's mailbox of received Bundles,
// /build constructs and dispatches an outgoing Bundle, and /unregister removes the client.
type RestAgent struct {
	router *mux.Router

	receiver chan Message
	sender   chan Message

	// map UUIDs to EIDs and received bundles
	clients sync.Map // uuid[string] -> bpv7.EndpointID
	mailbox sync.Map // uuid[string] -> []bpv7.Bundle
}

// NewRestAgent creates a new RESTful ApplicationAgent.
func NewRestAgent(router *mux.Router) (ra *RestAgent) {
	ra = &RestAgent{
		router: router,

		receiver: make(chan Message),
		sender:   make(chan Message),
	}

	ra.router.HandleFunc("/register", ra.handleRegister).Methods(http.MethodPost)
	ra.router.HandleFunc("/unregister", ra.handleUnregister).Methods(http.MethodPost)
	ra.router.HandleFunc("/fetch", ra.handleFetch).Methods(http.MethodPost)
	ra.router.HandleFunc("/build", ra.handleBuild).Methods(http.MethodPost)

	go ra.handler()

	return ra
}

// handler consumes incoming Messages and sorts Bundles into the clients' mailboxes.
func (ra *RestAgent) handler() {
	defer close(ra.sender)

	for m := range ra.receiver {
		switch m := m.(type) {
		case BundleMessage:
			ra.deposit(m.Bundle)

		case ShutdownMessage:
			return

		default:
			log.WithField("message", m).Info("RestAgent received unsupported Message")
		}
	}
}

// deposit an incoming Bundle in the mailbox of each client registered for its destination.
func (ra *RestAgent) deposit(b bpv7.Bundle) {
	ra.clients.Range(func(uuid, eid interface{}) bool {
		if eid.(bpv7.EndpointID) != b.PrimaryBlock.Destination {
			return true
		}

		var bundles []bpv7.Bundle
		if stored, ok := ra.mailbox.Load(uuid); ok {
			bundles = stored.([]bpv7.Bundle)
		}
		ra.mailbox.Store(uuid, append(bundles, b))

		log.WithFields(log.Fields{
			"bundle": b.ID(),
			"uuid":   uuid,
		}).Info("RestAgent stored Bundle in mailbox")

		return true
	})
}

// randomUuid to be used for authentication. UUID does not complain RFC 4122.
func (_ *RestAgent) randomUuid() (uuid string, err error) {
	uuidBytes := make([]byte, 16)
	if _, err = rand.Read(uuidBytes); err == nil {
		uuid = fmt.Sprintf("%x-%x-%x-%x-%x",
			uuidBytes[0:4], uuidBytes[4:6], uuidBytes[6:8], uuidBytes[8:10], uuidBytes[10:16])
	}
	return
}

// handleRegister processes /register POST requests.
func (ra *RestAgent) handleRegister(w http.ResponseWriter, r *http.Request) {
	var (
		registerRequest  RestRegisterRequest
		registerResponse RestRegisterResponse
	)

	if jsonErr := json.NewDecoder(r.Body).Decode(&registerRequest); jsonErr != nil {
		registerResponse.Error = jsonErr.Error()
	} else if eid, eidErr := bpv7.NewEndpointID(registerRequest.EndpointId); eidErr != nil {
		registerResponse.Error = eidErr.Error()
	} else if uuid, uuidErr := ra.randomUuid(); uuidErr != nil {
		registerResponse.Error = uuidErr.Error()
	} else {
		ra.clients.Store(uuid, eid)
		registerResponse.UUID = uuid
	}

	log.WithFields(log.Fields{
		"request":  registerRequest,
		"response": registerResponse,
	}).Info("Processing REST registration")

	if err := json.NewEncoder(w).Encode(registerResponse); err != nil {
		log.WithError(err).Warn("Failed to write REST registration response")
	}
}

// handleUnregister processes /unregister POST requests.
func (ra *RestAgent) handleUnregister(w http.ResponseWriter, r *http.Request) {
	var (
		unregisterRequest  RestUnregisterRequest
		unregisterResponse RestUnregisterResponse
	)

	if jsonErr := json.NewDecoder(r.Body).Decode(&unregisterRequest); jsonErr != nil {
		log.WithError(jsonErr).Warn("Failed to parse REST unregistration request")
	} else {
		log.WithField("uuid", unregisterRequest.UUID).Info("Unregister REST client")
		ra.clients.Delete(unregisterRequest.UUID)
		ra.mailbox.Delete(unregisterRequest.UUID)
	}
	if err := json.NewEncoder(w).Encode(unregisterResponse); err != nil {
		log.WithError(err).Warn("Failed to write REST unregistration response")
	}
}

// handleFetch processes /fetch POST requests and empties the client's mailbox.
func (ra *RestAgent) handleFetch(w http.ResponseWriter, r *http.Request) {
	var (
		fetchRequest  RestFetchRequest
		fetchResponse RestFetchResponse
	)

	if jsonErr := json.NewDecoder(r.Body).Decode(&fetchRequest); jsonErr != nil {
		fetchResponse.Error = jsonErr.Error()
	} else if _, ok := ra.clients.Load(fetchRequest.UUID); !ok {
		fetchResponse.Error = "unknown UUID"
	} else if bundles, ok := ra.mailbox.LoadAndDelete(fetchRequest.UUID); ok {
		fetchResponse.Bundles = bundles.([]bpv7.Bundle)
	}

	if err := json.NewEncoder(w).Encode(fetchResponse); err != nil {
		log.WithError(err).Warn("Failed to write REST fetch response")
	}
}

// handleBuild processes /build POST requests and dispatches the built Bundle.
func (ra *RestAgent) handleBuild(w http.ResponseWriter, r *http.Request) {
	var (
		buildRequest  RestBuildRequest
		buildResponse RestBuildResponse
	)

	if jsonErr := json.NewDecoder(r.Body).Decode(&buildRequest); jsonErr != nil {
		buildResponse.Error = jsonErr.Error()
	} else if _, ok := ra.clients.Load(buildRequest.UUID); !ok {
		buildResponse.Error = "unknown UUID"
	} else if b, buildErr := bpv7.BuildFromMap(buildRequest.Args); buildErr != nil {
		buildResponse.Error = buildErr.Error()
	} else {
		log.WithFields(log.Fields{
			"bundle": b.ID(),
			"uuid":   buildRequest.UUID,
		}).Info("RestAgent dispatches built Bundle")

		ra.sender <- BundleMessage{Bundle: b}
	}

	if err := json.NewEncoder(w).Encode(buildResponse); err != nil {
		log.WithError(err).Warn("Failed to write REST build response")
	}
}

// ServeHTTP is a http.Handler to be bound to a HTTP endpoint, e.g., /rest.
func (ra *RestAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ra.router.ServeHTTP(w, r)
}

func (ra *RestAgent) Endpoints() (eids []bpv7.EndpointID) {
	ra.clients.Range(func(_, v interface{}) bool {
		eids = append(eids, v.(bpv7.EndpointID))
		return true
	})
	return
}

func (ra *RestAgent) MessageReceiver() chan Message {
	return ra.receiver
}

func (ra *RestAgent) MessageSender() chan Message {
	return ra.sender
}
