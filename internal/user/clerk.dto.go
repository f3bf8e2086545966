package user

import "encoding/json"

type ClerkWebhookEvent struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

type ClerkEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Verification struct {
		Status string `json:"status"`
	} `json:"verification"`
}

type ClerkUserData struct {
	ID                    string              `json:"id"`
	Username              string              `json:"username"`
	FirstName             string              `json:"first_name"`
	LastName              string              `json:"last_name"`
	ImageURL              string              `json:"image_url"`
	ProfileImageURL       string              `json:"profile_image_url"`
	PrimaryEmailAddressID string              `json:"primary_email_address_id"`
	EmailAddresses        []ClerkEmailAddress `json:"email_addresses"`
}

// Profile picks the primary email (falling back to the first one) and a display name.
func (d *ClerkUserData) Profile() *ClerkProfile {
	p := &ClerkProfile{ClerkID: d.ID, ImageURL: d.ImageURL}
	if p.ImageURL == "" {
		p.ImageURL = d.ProfileImageURL
	}

	for i, e := range d.EmailAddresses {
		if e.ID == d.PrimaryEmailAddressID || (i == 0 && p.Email == "") {
			p.Email = e.EmailAddress
			p.EmailVerified = e.Verification.Status == "verified"
		}
	}

	switch {
	case d.FirstName != "" && d.LastName != "":
		p.Name = d.FirstName + " " + d.LastName
	case d.FirstName != "":
		p.Name = d.FirstName
	default:
		p.Name = d.Username
	}
	return p
}
