// Package extract recovers structured client fields and a clean job
// narrative from the semi-structured text blobs that arrive with a job
// request. Input is typically markdown-ish output from the text
// enhancement service, but any string is accepted.
package extract

import (
	"strings"
)

// Sentinel values returned when a field was not present in the input.
// Callers render these directly, so they are user-facing strings.
const (
	NoClientName  = "No client name"
	NoContactInfo = "No contact info"
	NoAddress     = "No address"
)

const (
	sectionClientDetails  = "client details"
	sectionJobDescription = "job description"
)

// Fields is the result of parsing a raw description block. All fields are
// always set: missing client data resolves to the sentinel constants and a
// missing narrative resolves to the empty string, never to a sentinel,
// since callers usually have their own raw text to fall back on.
type Fields struct {
	ClientName     string `json:"client_name"`
	ClientContact  string `json:"client_contact"`
	ClientAddress  string `json:"client_address"`
	JobDescription string `json:"job_description"`
}

// Extract parses rawText into client fields and a narrative. It is pure and
// total: any input, including the empty string, yields a fully populated
// Fields without error.
//
// Lines starting with "###" open a new section. Lines inside a
// "Client Details" section are scanned for name/phone/address label-value
// pairs; lines inside a "Job Description" section accumulate into the
// narrative. All other sections are ignored. The narrative closes for good
// at the first heading that follows it, so a second discontiguous
// "Job Description" section is never merged into the first.
func Extract(rawText string) Fields {
	var (
		section         string
		narrative       []string
		narrativeOpened bool
		narrativeClosed bool
		name            string
		contact         string
		address         string
	)

	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if heading, ok := parseHeading(line); ok {
			if narrativeOpened {
				narrativeClosed = true
			}
			section = heading
			if section == sectionJobDescription && !narrativeClosed {
				narrativeOpened = true
			}
			continue
		}

		switch section {
		case sectionJobDescription:
			if !narrativeClosed {
				narrative = append(narrative, line)
			}
		case sectionClientDetails:
			label, value, ok := parseLabelValue(line)
			if !ok {
				continue
			}
			switch {
			case strings.Contains(label, "name"):
				name = value
			case strings.Contains(label, "phone"):
				contact = value
			case strings.Contains(label, "address"):
				address = value
			}
		}
	}

	return Fields{
		ClientName:     orSentinel(name, NoClientName),
		ClientContact:  orSentinel(contact, NoContactInfo),
		ClientAddress:  orSentinel(address, NoAddress),
		JobDescription: strings.Join(narrative, "\n"),
	}
}

// parseHeading reports whether the line is a "### <Name>" section heading
// and returns the normalized section name.
func parseHeading(line string) (string, bool) {
	if !strings.HasPrefix(line, "###") {
		return "", false
	}
	return normalizeSection(strings.TrimLeft(line, "#")), true
}

// parseLabelValue strips bullet and bold markup from a client-details line
// and splits it at the first colon. The value is the first colon-delimited
// segment after the label.
func parseLabelValue(line string) (label, value string, ok bool) {
	line = strings.TrimSpace(strings.TrimLeft(line, "-* \t"))
	line = strings.ReplaceAll(line, "**", "")

	parts := strings.Split(line, ":")
	if len(parts) < 2 {
		return "", "", false
	}
	return strings.ToLower(parts[0]), strings.TrimSpace(parts[1]), true
}

func normalizeSection(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func orSentinel(v, sentinel string) string {
	if v == "" {
		return sentinel
	}
	return v
}
