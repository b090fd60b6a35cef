// Package services holds the shared error taxonomy and context carriers
// used by pipeline components and the HTTP front door.
package services
