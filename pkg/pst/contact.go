package pst

import (
	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/types"
)

// Contact is the typed view over an IPM.Contact item. The postal-address
// and email fields are named properties under PSETID_Address, resolved
// through the file's name-to-id map.
type Contact struct {
	*Message
}

// Kind implements Entity.
func (c *Contact) Kind() Kind { return KindContact }

// GivenName returns the contact's first name.
func (c *Contact) GivenName() (string, error) {
	s, _, err := c.pc.GetString(types.PropGivenName)
	return s, err
}

// Surname returns the contact's last name.
func (c *Contact) Surname() (string, error) {
	s, _, err := c.pc.GetString(types.PropSurname)
	return s, err
}

// CompanyName returns the contact's company.
func (c *Contact) CompanyName() (string, error) {
	s, _, err := c.pc.GetString(types.PropCompanyName)
	return s, err
}

// Title returns the contact's job title.
func (c *Contact) Title() (string, error) {
	s, _, err := c.pc.GetString(types.PropTitle)
	return s, err
}

// BusinessTelephoneNumber returns the contact's work phone number.
func (c *Contact) BusinessTelephoneNumber() (string, error) {
	s, _, err := c.pc.GetString(types.PropBusinessTelephoneNumber)
	return s, err
}

// HomeTelephoneNumber returns the contact's home phone number.
func (c *Contact) HomeTelephoneNumber() (string, error) {
	s, _, err := c.pc.GetString(types.PropHomeTelephoneNumber)
	return s, err
}

// MobileTelephoneNumber returns the contact's mobile phone number.
func (c *Contact) MobileTelephoneNumber() (string, error) {
	s, _, err := c.pc.GetString(types.PropMobileTelephoneNumber)
	return s, err
}

// WorkAddressStreet returns the work address street line.
func (c *Contact) WorkAddressStreet() (string, error) {
	return c.namedString(format.PSETIDAddress, types.NamedWorkAddressStreet)
}

// WorkAddressCity returns the work address city.
func (c *Contact) WorkAddressCity() (string, error) {
	return c.namedString(format.PSETIDAddress, types.NamedWorkAddressCity)
}

// WorkAddressState returns the work address state or province.
func (c *Contact) WorkAddressState() (string, error) {
	return c.namedString(format.PSETIDAddress, types.NamedWorkAddressState)
}

// WorkAddressPostalCode returns the work address postal code.
func (c *Contact) WorkAddressPostalCode() (string, error) {
	return c.namedString(format.PSETIDAddress, types.NamedWorkAddressPostalCode)
}

// WorkAddressCountry returns the work address country.
func (c *Contact) WorkAddressCountry() (string, error) {
	return c.namedString(format.PSETIDAddress, types.NamedWorkAddressCountry)
}

// Email1EmailAddress returns the primary email address.
func (c *Contact) Email1EmailAddress() (string, error) {
	return c.namedString(format.PSETIDAddress, types.NamedEmail1EmailAddress)
}
