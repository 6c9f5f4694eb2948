package scheduling

import "github.com/harentsoaR/wellness-api/internal/models"

// ResolveService finds the requested service by exact name. The returned price
// is the fee snapshot stored on the appointment.
func ResolveService(view *ProviderView, name string) (models.Service, error) {
	for _, s := range view.Services {
		if s.Name == name {
			return s, nil
		}
	}
	return models.Service{}, ErrServiceNotOffered.WithMessage("%s does not offer %q", view.Name, name)
}
