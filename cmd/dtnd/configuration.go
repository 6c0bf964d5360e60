// SPDX-FileCopyrightText: 2022, 2023 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BurntSushi/toml"
	"github.com/gorilla/mux"

	"github.com/dtn7/bpnode-go/pkg/agent"
	"github.com/dtn7/bpnode-go/pkg/bpv7"
	"github.com/dtn7/bpnode-go/pkg/cla"
	"github.com/dtn7/bpnode-go/pkg/cla/quicl"
	"github.com/dtn7/bpnode-go/pkg/cla/tcpcl"
	"github.com/dtn7/bpnode-go/pkg/discovery"
	"github.com/dtn7/bpnode-go/pkg/routing"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Core      coreConf
	Logging   logConf
	Discovery discoveryConf
	Agents    agentsConf
	Listen    []convergenceConf
	Peer      []convergenceConf
	Routing   routing.RoutingConf
}

// coreConf describes the Core-configuration block.
type coreConf struct {
	Store             string
	InspectAllBundles bool   `toml:"inspect-all-bundles"`
	NodeId            string `toml:"node-id"`
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// discoveryConf describes the Discovery-configuration block.
type discoveryConf struct {
	IPv4     bool
	IPv6     bool
	Interval uint
}

// agentsConf describes the Agents-configuration block: a web server hosting
// the WebSocket and REST application agents, and an optional ping endpoint.
type agentsConf struct {
	Address string
	Ping    string
}

// convergenceConf describes the Convergence-configuration block, used for
// "listen" and "peer".
type convergenceConf struct {
	Node     string
	Protocol string
	Endpoint string
}

func parseListenPort(endpoint string) (port int, err error) {
	var portStr string
	_, portStr, err = net.SplitHostPort(endpoint)
	if err != nil {
		return
	}
	port, err = strconv.Atoi(portStr)
	return
}

// parseListen inspects a "listen" convergenceConf and returns a Convergable
// next to its discovery Announcement.
func parseListen(conv convergenceConf, nodeId bpv7.EndpointID) (cla.Convergable, discovery.Announcement, error) {
	claType, ok := cla.TypeFromString(conv.Protocol)
	if !ok {
		return nil, discovery.Announcement{}, fmt.Errorf("unknown listen.protocol %q", conv.Protocol)
	}

	portInt, err := parseListenPort(conv.Endpoint)
	if err != nil {
		return nil, discovery.Announcement{}, err
	}

	announcement := discovery.Announcement{
		Type:     claType,
		Endpoint: nodeId,
		Port:     uint(portInt),
	}

	switch claType {
	case cla.TCPCL:
		return tcpcl.ListenTCP(conv.Endpoint, nodeId), announcement, nil

	case cla.QUICL:
		return quicl.NewQUICListener(conv.Endpoint, nodeId), announcement, nil

	default:
		return nil, discovery.Announcement{}, fmt.Errorf("no listener for %v", claType)
	}
}

// parsePeer inspects a "peer" convergenceConf and dials the remote node.
func parsePeer(conv convergenceConf, nodeId bpv7.EndpointID) (cla.Convergable, error) {
	claType, ok := cla.TypeFromString(conv.Protocol)
	if !ok {
		return nil, fmt.Errorf("unknown peer.protocol %q", conv.Protocol)
	}

	switch claType {
	case cla.TCPCL:
		return tcpcl.DialTCP(conv.Endpoint, nodeId, true), nil

	case cla.QUICL:
		return quicl.NewDialerEndpoint(conv.Endpoint, nodeId, true), nil

	default:
		return nil, fmt.Errorf("no dialer for %v", claType)
	}
}

// parseAgents starts a web server hosting the WebSocket agent under /ws and
// the REST agent under /rest, both registered at the Core.
func parseAgents(conf agentsConf, c *routing.Core) (webServer *http.Server, err error) {
	if conf.Ping != "" {
		var pingEndpoint bpv7.EndpointID
		if pingEndpoint, err = bpv7.NewEndpointID(conf.Ping); err != nil {
			return
		}
		c.RegisterApplicationAgent(agent.NewPing(pingEndpoint))
	}

	if conf.Address == "" {
		return
	}

	wsAgent := agent.NewWebSocketAgent()
	c.RegisterApplicationAgent(wsAgent)

	router := mux.NewRouter()
	restAgent := agent.NewRestAgent(router.PathPrefix("/rest").Subrouter())
	c.RegisterApplicationAgent(restAgent)

	router.HandleFunc("/ws", wsAgent.ServeHTTP)

	webServer = &http.Server{
		Addr:    conf.Address,
		Handler: router,
	}
	go func() {
		if httpErr := webServer.ListenAndServe(); httpErr != http.ErrServerClosed {
			log.WithError(httpErr).Error("Agent web server failed")
		}
	}()

	return
}

// parseLogging configures logrus as requested in the Logging block.
func parseLogging(conf logConf) {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}
}

// parseCore creates the Core based on the given TOML configuration.
func parseCore(filename string) (c *routing.Core, disc *discovery.Manager, webServer *http.Server, err error) {
	var conf tomlConfig
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	parseLogging(conf.Logging)

	// Core
	if conf.Core.Store == "" {
		err = fmt.Errorf("core.store is empty")
		return
	}

	log.WithFields(log.Fields{
		"routing": conf.Routing.Algorithm,
	}).Debug("Selected routing algorithm")

	nodeId, nodeErr := bpv7.NewEndpointID(conf.Core.NodeId)
	if nodeErr != nil {
		err = nodeErr
		return
	}

	c, err = routing.NewCore(conf.Core.Store, nodeId, conf.Core.InspectAllBundles, conf.Routing)
	if err != nil {
		return
	}

	// Agents
	if webServer, err = parseAgents(conf.Agents, c); err != nil {
		return
	}

	// Listen/ConvergenceReceiver
	var announcements []discovery.Announcement
	for _, conv := range conf.Listen {
		var convRec cla.Convergable
		var announcement discovery.Announcement
		if convRec, announcement, err = parseListen(conv, c.NodeId); err != nil {
			return
		}

		announcements = append(announcements, announcement)
		c.RegisterConvergable(convRec)
	}

	// Peer/ConvergenceSender
	for _, conv := range conf.Peer {
		convSender, peerErr := parsePeer(conv, c.NodeId)
		if peerErr != nil {
			log.WithFields(log.Fields{
				"peer":  conv.Endpoint,
				"error": peerErr,
			}).Warn("Failed to establish a connection to a peer")
			continue
		}

		c.RegisterConvergable(convSender)
	}

	// Discovery
	if conf.Discovery.IPv4 || conf.Discovery.IPv6 {
		if conf.Discovery.Interval == 0 {
			conf.Discovery.Interval = 10
		}

		disc, err = discovery.NewManager(
			c.NodeId, c.RegisterConvergable, announcements,
			time.Duration(conf.Discovery.Interval)*time.Second,
			conf.Discovery.IPv4, conf.Discovery.IPv6)
		if err != nil {
			return
		}
	}

	return
}
