package core

// Reference bundles the configuration entities a projection run needs:
// the category plan, the account list and the payment methods with their
// fee and settlement behavior.
type Reference struct {
	Categories     []Category
	Accounts       []Account
	PaymentMethods []PaymentMethod
}

// CategoryByID returns the category with the given ID, if present.
func (r Reference) CategoryByID(id string) (Category, bool) {
	for _, c := range r.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// AccountByID returns the account with the given ID, if present.
func (r Reference) AccountByID(id string) (Account, bool) {
	for _, a := range r.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// PaymentMethodByID returns the payment method with the given ID, if present.
func (r Reference) PaymentMethodByID(id string) (PaymentMethod, bool) {
	for _, m := range r.PaymentMethods {
		if m.ID == id {
			return m, true
		}
	}
	return PaymentMethod{}, false
}
