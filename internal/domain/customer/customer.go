// Package customer derives the customer directory from stored orders.
// Customers are not persisted on their own; the phone number is their
// identity.
package customer

import (
	"context"
	"sort"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/order"
)

// Project returns one CustomerInfo per distinct phone number. The first
// order carrying a number wins, in the order given.
func Project(orders []order.Order) []order.CustomerInfo {
	seen := make(map[string]struct{}, len(orders))
	out := make([]order.CustomerInfo, 0, len(orders))
	for _, o := range orders {
		phone := strings.TrimSpace(o.Customer.PhoneNumber)
		if phone == "" {
			continue
		}
		if _, ok := seen[phone]; ok {
			continue
		}
		seen[phone] = struct{}{}
		out = append(out, o.Customer)
	}
	return out
}

// OrderLister is the read side of the order store used by the directory.
type OrderLister interface {
	List(ctx context.Context) ([]order.Order, error)
}

// Service serves the admin customer directory.
type Service struct {
	orders OrderLister
}

// NewService creates a customer directory Service.
func NewService(orders OrderLister) *Service {
	return &Service{orders: orders}
}

// List reads every order, projects the customers and keeps those whose
// name, phone or address contains query (case-insensitive). The result is
// sorted by name.
func (s *Service) List(ctx context.Context, query string) ([]order.CustomerInfo, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, apperr.External("order store", errors.Wrap(err, "list orders"))
	}
	customers := Project(orders)

	q := strings.ToLower(strings.TrimSpace(query))
	if q != "" {
		out := customers[:0]
		for _, c := range customers {
			if matches(c, q) {
				out = append(out, c)
			}
		}
		customers = out
	}
	sort.SliceStable(customers, func(i, j int) bool {
		return strings.ToLower(customers[i].Name) < strings.ToLower(customers[j].Name)
	})
	return customers, nil
}

func matches(c order.CustomerInfo, q string) bool {
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.PhoneNumber), q) ||
		strings.Contains(strings.ToLower(c.Address), q)
}
