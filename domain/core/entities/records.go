package entities

import "time"

// Catalog is a discovery result recorded against a node.
type Catalog struct {
	ID        string         `json:"id" dynamodbav:"CatalogID"`
	NodeID    string         `json:"node" dynamodbav:"NodeID"`
	Source    string         `json:"source" dynamodbav:"Source"`
	Data      map[string]any `json:"data,omitempty" dynamodbav:"Data,omitempty"`
	CreatedAt time.Time      `json:"createdAt" dynamodbav:"CreatedAt"`
}

// WorkItem is a scheduled poller job bound to a node.
type WorkItem struct {
	ID              string    `json:"id" dynamodbav:"WorkItemID"`
	NodeID          string    `json:"node" dynamodbav:"NodeID"`
	Name            string    `json:"name" dynamodbav:"Name"`
	PollIntervalSec int       `json:"pollInterval" dynamodbav:"PollIntervalSec"`
	NextRunAt       time.Time `json:"nextRunAt" dynamodbav:"NextRunAt"`
}

// Lookup maps a MAC address to an IP address and, optionally, a node.
// Clearing a node leaves the row in place with an empty NodeID.
type Lookup struct {
	MACAddress string `json:"macAddress" dynamodbav:"MACAddress"`
	IPAddress  string `json:"ipAddress,omitempty" dynamodbav:"IPAddress,omitempty"`
	NodeID     string `json:"node,omitempty" dynamodbav:"NodeID,omitempty"`
}
