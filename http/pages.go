package http

import "net/http"

// Page is an informational page of the navigation surface.
type Page struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Route is one entry of the navigation surface.
type Route struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Name   string `json:"name"`
}

// Pages are served as static JSON.
var Pages = []Page{
	{Name: "invest", Path: "/invest", Title: "Invest", Body: "Grow your savings with MiniSafe."},
	{Name: "jobs", Path: "/jobs", Title: "Jobs", Body: "Open positions at MiniSafe."},
	{Name: "testimonials", Path: "/testimonials", Title: "Testimonials", Body: "What savers say about MiniSafe."},
	{Name: "blogs", Path: "/blogs", Title: "Blogs", Body: "News and guides from the MiniSafe team."},
	{Name: "contact", Path: "/contact", Title: "Contact", Body: "Get in touch with MiniSafe."},
	{Name: "faq", Path: "/faq", Title: "FAQ", Body: "Answers to common questions about saving and paying with MiniSafe."},
}

// Routes lists every route the routers register.
func Routes() []Route {
	routes := []Route{
		{Method: http.MethodGet, Path: "/", Name: "home"},
		{Method: http.MethodGet, Path: "/pay", Name: "pay"},
		{Method: http.MethodPost, Path: "/token", Name: "select_token"},
		{Method: http.MethodPost, Path: "/deposit", Name: "deposit"},
		{Method: http.MethodPost, Path: "/withdraw", Name: "withdraw"},
		{Method: http.MethodPost, Path: "/break-lock", Name: "break_lock"},
		{Method: http.MethodPost, Path: "/merchants", Name: "add_merchant"},
		{Method: http.MethodPut, Path: "/merchants/{id}", Name: "update_merchant"},
		{Method: http.MethodPost, Path: "/merchants/{id}/pay", Name: "pay_merchant"},
	}
	for _, p := range Pages {
		routes = append(routes, Route{Method: http.MethodGet, Path: p.Path, Name: p.Name})
	}
	return append(routes, Route{Method: http.MethodGet, Path: "/routes", Name: "routes"})
}
