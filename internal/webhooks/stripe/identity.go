package stripewebhook

import (
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// customerIdentity is the contact snapshot a handler resolved for one event.
// Each source fills only the fields it actually carries; later sources never
// overwrite earlier ones.
type customerIdentity struct {
	Name    string
	Email   string
	Phone   string
	Line1   string
	Line2   string
	City    string
	Postal  string
	State   string
	Country string
}

// identityFromSession folds a checkout session's contact blocks. Shipping
// details win for name, phone and address; the email always comes from the
// billing side because shipping blocks do not carry one.
func identityFromSession(session *checkoutSession) customerIdentity {
	var id customerIdentity
	id.absorbParty(session.shipping())
	id.absorbParty(session.billing())

	if bill := session.billing(); bill != nil {
		id.Email = bill.Email
	}
	if id.Email == "" {
		id.Email = session.CustomerEmail
	}
	return id
}

// identityFromInvoice folds an invoice's flat customer_* fields first, then
// the customer_shipping block for anything still missing.
func identityFromInvoice(inv *invoicePayload) customerIdentity {
	id := customerIdentity{
		Name:  inv.CustomerName,
		Email: inv.CustomerEmail,
		Phone: inv.CustomerPhone,
	}
	id.absorbAddress(inv.CustomerAddress)
	id.absorbParty(inv.CustomerShipping)
	return id
}

// identityFromCustomer maps a fetched customer object. Used when the event
// payload itself resolved no usable contact.
func identityFromCustomer(customer *stripe.Customer) customerIdentity {
	if customer == nil {
		return customerIdentity{}
	}
	id := customerIdentity{
		Name:  customer.Name,
		Email: customer.Email,
		Phone: customer.Phone,
	}
	if customer.Address != nil {
		id.absorbAddress(&address{
			Line1:      customer.Address.Line1,
			Line2:      customer.Address.Line2,
			City:       customer.Address.City,
			PostalCode: customer.Address.PostalCode,
			State:      customer.Address.State,
			Country:    customer.Address.Country,
		})
	}
	return id
}

// merge fills the receiver's empty fields from the fallback identity.
func (id customerIdentity) merge(fallback customerIdentity) customerIdentity {
	if id.Name == "" {
		id.Name = fallback.Name
	}
	if id.Email == "" {
		id.Email = fallback.Email
	}
	if id.Phone == "" {
		id.Phone = fallback.Phone
	}
	if !id.hasAddress() {
		id.Line1 = fallback.Line1
		id.Line2 = fallback.Line2
		id.City = fallback.City
		id.Postal = fallback.Postal
		id.State = fallback.State
		id.Country = fallback.Country
	}
	return id
}

func (id *customerIdentity) absorbParty(party *partyDetails) {
	if party == nil {
		return
	}
	if id.Name == "" {
		id.Name = party.Name
	}
	if id.Phone == "" {
		id.Phone = party.Phone
	}
	id.absorbAddress(party.Address)
}

func (id *customerIdentity) absorbAddress(addr *address) {
	if addr == nil || id.hasAddress() {
		return
	}
	id.Line1 = addr.Line1
	id.Line2 = addr.Line2
	id.City = addr.City
	id.Postal = addr.PostalCode
	id.State = addr.State
	id.Country = addr.Country
}

func (id customerIdentity) hasAddress() bool {
	return id.Line1 != "" || id.City != "" || id.Postal != "" || id.Country != ""
}

// street joins the address lines for single-column storage.
func (id customerIdentity) street() string {
	if id.Line2 == "" {
		return id.Line1
	}
	if id.Line1 == "" {
		return id.Line2
	}
	return id.Line1 + ", " + id.Line2
}

// formattedAddress renders a one-line postal address for email bodies.
// Empty segments are skipped so partial addresses still read cleanly.
func (id customerIdentity) formattedAddress() string {
	locality := strings.TrimSpace(id.Postal + " " + id.City)
	var parts []string
	for _, part := range []string{id.street(), locality, id.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}
