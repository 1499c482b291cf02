package models

import "time"

// Algorithm versions stamped on credential sets.
const (
	AmnesiaAlgorithmV1   = "amnesia_v1"
	HoneywordAlgorithmV1 = "v1"
)

// CredentialSet is a user's Amnesia set. Exactly one entry hashes the
// password the user knows; which one is never stored. The real entry is
// always marked, other entries carry probabilistic marks.
type CredentialSet struct {
	ID               string
	UserID           string
	K                int
	PMark            float64
	PRemark          float64
	AlgorithmVersion string
	CreatedAt        time.Time
	Credentials      []Credential
}

// Credential is one entry of a CredentialSet.
type Credential struct {
	Index        int
	PasswordHash string
	Marked       bool
}

// MarkedCount returns how many entries are currently marked.
func (s *CredentialSet) MarkedCount() int {
	n := 0
	for _, c := range s.Credentials {
		if c.Marked {
			n++
		}
	}
	return n
}

// Credential returns the entry with the given index.
func (s *CredentialSet) Credential(index int) (Credential, bool) {
	for _, c := range s.Credentials {
		if c.Index == index {
			return c, true
		}
	}
	return Credential{}, false
}

// HoneywordSet is the split-knowledge variant: k hashes with no marks. The
// real index lives only in the honeychecker.
type HoneywordSet struct {
	ID               string
	UserID           string
	K                int
	AlgorithmVersion string
	CreatedAt        time.Time
	Hashes           []HoneywordHash
}

type HoneywordHash struct {
	Index        int
	PasswordHash string
}
