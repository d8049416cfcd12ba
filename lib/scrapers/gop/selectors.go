package gop

// Selectors holds every heuristic used against the portal's markup, so they
// can be adjusted from configuration when the UI changes.
type Selectors struct {
	// css selectors tried in order for the login fields
	LoginUser     []string `json:"login_user"`
	LoginPassword []string `json:"login_password"`
	// fallbacks when none of the selectors match: <label> text and placeholder
	UserLabel           string   `json:"user_label"`
	PasswordLabel       string   `json:"password_label"`
	UserPlaceholder     string   `json:"user_placeholder"`
	PasswordPlaceholder string   `json:"password_placeholder"`
	LoginSubmit         []string `json:"login_submit"`
	SubmitLabels        []string `json:"submit_labels"`
	// validation messages shown next to a rejected login
	LoginErrors string `json:"login_errors"`

	TableRows  string `json:"table_rows"`
	EmptyTable string `json:"empty_table"`

	Paginator   []string `json:"paginator"`
	NextControl []string `json:"next_control"`
	NextLabels  []string `json:"next_labels"`

	DownloadMarkers []string `json:"download_markers"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		LoginUser: []string{
			`input[name="LoginForm[username]"]`,
			`input#loginform-username`,
			`input[name="username"]`,
		},
		LoginPassword: []string{
			`input[name="LoginForm[password]"]`,
			`input#loginform-password`,
			`input[name="password"]`,
			`input[type="password"]`,
		},
		UserLabel:           "Nombre de Usuario",
		PasswordLabel:       "Contraseña",
		UserPlaceholder:     "Nombre de Usuario",
		PasswordPlaceholder: "Contraseña",
		LoginSubmit: []string{
			`button[type="submit"]`,
			`input[type="submit"]`,
		},
		SubmitLabels: []string{"ingresar", "login"},
		LoginErrors:  ".help-block-error, .invalid-feedback, .alert-danger",

		TableRows:  "table tbody tr",
		EmptyTable: "div.empty",

		Paginator: []string{".pagination"},
		NextControl: []string{
			`ul.pagination li.next a`,
			`ul.pagination li.next span`,
			`a[rel="next"]`,
			`a[aria-label*="siguiente" i]`,
		},
		NextLabels: []string{"siguiente", "next", "»", "›"},

		DownloadMarkers: []string{"pdf", "descargar"},
	}
}
