package portal

import (
	"context"
	"maps"
	"sync"
)

// PageKind identifies which form a Page drives
type PageKind string

const (
	PageLogin    PageKind = "login"
	PageRegister PageKind = "register"
)

// FormState is the state of one form page
type FormState struct {
	Fields      map[string]string `json:"fields"`
	FieldErrors map[string]string `json:"fieldErrors"`
	SubmitError string            `json:"submitError,omitempty"`
	Submitting  bool              `json:"submitting"`
}

// HasErrors reports whether any field error is set
func (s FormState) HasErrors() bool {
	for _, msg := range s.FieldErrors {
		if msg != "" {
			return true
		}
	}
	return false
}

// Page holds the state of a login or register form and submits it
// through the session actions. A Page accepts one submission at a time.
type Page struct {
	kind    PageKind
	actions SessionActions

	mu    sync.Mutex
	state FormState
}

func NewLoginPage(actions SessionActions) *Page {
	return newPage(PageLogin, actions, FieldEmail, FieldPassword)
}

func NewRegisterPage(actions SessionActions) *Page {
	return newPage(PageRegister, actions, FieldName, FieldEmail, FieldPassword, FieldConfirmPassword)
}

func newPage(kind PageKind, actions SessionActions, fields ...string) *Page {
	p := &Page{
		kind:    kind,
		actions: actions,
		state: FormState{
			Fields:      make(map[string]string, len(fields)),
			FieldErrors: map[string]string{},
		},
	}
	for _, f := range fields {
		p.state.Fields[f] = ""
	}
	return p
}

func (p *Page) Kind() PageKind {
	return p.kind
}

// State returns a copy of the current form state
func (p *Page) State() FormState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Change sets a field value, clearing its error and the submit error.
// Unknown fields are ignored.
func (p *Page) Change(field, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.state.Fields[field]; !ok {
		return
	}

	p.state.Fields[field] = value
	delete(p.state.FieldErrors, field)
	p.state.SubmitError = ""
}

// Blur validates a single field and returns its message
func (p *Page) Blur(field string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.state.Fields[field]; !ok {
		return ""
	}

	msg := p.validateField(field)
	if msg == "" {
		delete(p.state.FieldErrors, field)
	} else {
		p.state.FieldErrors[field] = msg
	}
	return msg
}

// Submit validates every field and, when valid, calls the matching
// session action. It returns ErrFormInvalid when validation fails and
// ErrSubmitInProgress while a previous submission is still running.
func (p *Page) Submit(ctx context.Context) (Result, error) {
	p.mu.Lock()

	if p.state.Submitting {
		p.mu.Unlock()
		return Result{}, ErrSubmitInProgress
	}

	p.state.SubmitError = ""

	errs := p.validateAll()
	p.state.FieldErrors = errs
	if len(errs) > 0 {
		p.mu.Unlock()
		return Result{}, ErrFormInvalid
	}

	p.state.Submitting = true
	fields := maps.Clone(p.state.Fields)
	p.mu.Unlock()

	var res Result
	defer func() {
		p.mu.Lock()
		p.state.Submitting = false
		if !res.Success {
			p.state.SubmitError = res.Error
		}
		p.mu.Unlock()
	}()

	switch p.kind {
	case PageRegister:
		res = p.actions.Register(ctx, fields[FieldName], fields[FieldEmail], fields[FieldPassword])
		if !res.Success && res.Error == "" {
			res.Error = MessageRegistrationFailed
		}
	default:
		res = p.actions.Login(ctx, fields[FieldEmail], fields[FieldPassword])
		if !res.Success && res.Error == "" {
			res.Error = MessageLoginFailed
		}
	}

	return res, nil
}

func (p *Page) loginForm() LoginForm {
	return LoginForm{
		Email:    p.state.Fields[FieldEmail],
		Password: p.state.Fields[FieldPassword],
	}
}

func (p *Page) registerForm() RegisterForm {
	return RegisterForm{
		Name:            p.state.Fields[FieldName],
		Email:           p.state.Fields[FieldEmail],
		Password:        p.state.Fields[FieldPassword],
		ConfirmPassword: p.state.Fields[FieldConfirmPassword],
	}
}

func (p *Page) validateField(field string) string {
	if p.kind == PageRegister {
		return p.registerForm().ValidateField(field)
	}
	return p.loginForm().ValidateField(field)
}

func (p *Page) validateAll() map[string]string {
	var err error
	if p.kind == PageRegister {
		err = p.registerForm().Validate()
	} else {
		err = p.loginForm().Validate()
	}
	return FieldErrors(err)
}

func (p *Page) snapshot() FormState {
	return FormState{
		Fields:      maps.Clone(p.state.Fields),
		FieldErrors: maps.Clone(p.state.FieldErrors),
		SubmitError: p.state.SubmitError,
		Submitting:  p.state.Submitting,
	}
}
