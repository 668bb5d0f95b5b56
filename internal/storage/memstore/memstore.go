// Package memstore is an in-process storage.Store. Every mutation runs under
// one mutex, which gives the same atomicity the Postgres store gets from
// transactions and conditional updates.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/storage"
)

type submissionRow struct {
	domain.Submission
	createdAt time.Time
}

// Store keeps everything in maps.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	events  map[int64]domain.Event
	regs    map[int64]domain.Registration
	profile map[int64]domain.Profile
	subs    map[domain.SubmissionKind]map[int64]*submissionRow
	ideas   map[int64]domain.Idea
	collabs map[int64]domain.Collaboration
	donates map[int64]domain.Donation
	members map[int64]domain.Membership
	setting map[string]string
	admins  map[int64]domain.Admin
	tickets map[int64]domain.Ticket
	faqs    map[int64]domain.FAQ
	actions []domain.AdminAction
	now     func() time.Time

	// FailNext makes the next mutating call return this error.
	FailNext error
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{
		events:  map[int64]domain.Event{},
		regs:    map[int64]domain.Registration{},
		profile: map[int64]domain.Profile{},
		subs:    map[domain.SubmissionKind]map[int64]*submissionRow{},
		ideas:   map[int64]domain.Idea{},
		collabs: map[int64]domain.Collaboration{},
		donates: map[int64]domain.Donation{},
		members: map[int64]domain.Membership{},
		setting: map[string]string{},
		admins:  map[int64]domain.Admin{},
		tickets: map[int64]domain.Ticket{},
		faqs:    map[int64]domain.FAQ{},
		now:     time.Now,
	}
	for _, k := range domain.Kinds() {
		s.subs[k] = map[int64]*submissionRow{}
	}
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) failed() error {
	if err := s.FailNext; err != nil {
		s.FailNext = nil
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Events

func (s *Store) CreateEvent(_ context.Context, e domain.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return 0, err
	}
	e.ID = s.id()
	s.events[e.ID] = e
	return e.ID, nil
}

func (s *Store) GetEvent(_ context.Context, id int64) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListEvents(_ context.Context, active bool) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.IsActive == active {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) updateEvent(id int64, fn func(*domain.Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	e, ok := s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&e)
	s.events[id] = e
	return nil
}

func (s *Store) SetDeadline(_ context.Context, id int64, endAt *int64, by int64) error {
	return s.updateEvent(id, func(e *domain.Event) {
		e.EndAtTS = endAt
		e.EndSetBy = &by
	})
}

func (s *Store) SetCapacity(_ context.Context, id int64, capacity *int) error {
	return s.updateEvent(id, func(e *domain.Event) { e.Capacity = capacity })
}

func (s *Store) SetSingleRegistration(_ context.Context, id int64, single bool) error {
	return s.updateEvent(id, func(e *domain.Event) { e.SingleRegistration = single })
}

func (s *Store) SetActive(_ context.Context, id int64, active bool) error {
	return s.updateEvent(id, func(e *domain.Event) { e.IsActive = active })
}

func (s *Store) EditEvent(_ context.Context, id int64, field domain.EventField, value string) error {
	var set func(*domain.Event)
	switch field {
	case domain.FieldTitle:
		set = func(e *domain.Event) { e.Title = value }
	case domain.FieldDescription:
		set = func(e *domain.Event) { e.Description = value }
	case domain.FieldCardNumber:
		set = func(e *domain.Event) { e.CardNumber = value }
	case domain.FieldPoster:
		set = func(e *domain.Event) { e.PosterFileID = value }
	default:
		return fmt.Errorf("memstore: event field %q is not editable", field)
	}
	return s.updateEvent(id, set)
}

func (s *Store) DeactivateExpired(_ context.Context, now int64) ([]domain.EventTitle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	var out []domain.EventTitle
	for id, e := range s.events {
		if e.IsActive && e.EndAtTS != nil && *e.EndAtTS <= now {
			e.IsActive = false
			s.events[id] = e
			out = append(out, domain.EventTitle{ID: id, Title: e.Title})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Registrations

func (s *Store) counts(eventID, userID int64) domain.RegistrationCounts {
	var c domain.RegistrationCounts
	for _, r := range s.regs {
		if r.EventID != eventID || !r.Status.Active() {
			continue
		}
		c.EventActive++
		if r.UserID == userID {
			c.UserActive++
		}
	}
	return c
}

func (s *Store) RegistrationCounts(_ context.Context, eventID, userID int64) (domain.RegistrationCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts(eventID, userID), nil
}

func (s *Store) TallyRegistrations(_ context.Context, eventID int64) (domain.RegistrationTally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t domain.RegistrationTally
	for _, r := range s.regs {
		if r.EventID != eventID {
			continue
		}
		switch r.Status {
		case domain.RegApproved:
			t.Approved++
		case domain.RegRejected:
			t.Rejected++
		case domain.RegPending:
			t.Pending++
		}
	}
	return t, nil
}

func (s *Store) CommitRegistration(_ context.Context, in storage.RegistrationCommit, guard storage.Guard) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return 0, err
	}
	ev, ok := s.events[in.EventID]
	if !ok {
		return 0, domain.Ineligible(domain.ReasonNotFound)
	}
	if guard != nil {
		if err := guard(ev, s.counts(in.EventID, in.Profile.UserID), in.Now); err != nil {
			return 0, err
		}
	}
	s.profile[in.Profile.UserID] = mergeProfile(s.profile[in.Profile.UserID], in.Profile)
	r := domain.Registration{
		ID:                s.id(),
		UserID:            in.Profile.UserID,
		EventID:           in.EventID,
		Status:            domain.RegPending,
		Amount:            in.Amount,
		IsStudent:         in.IsStudent,
		PaymentReceiptRef: in.ReceiptRef,
		RegisterDate:      in.Now,
	}
	s.regs[r.ID] = r
	return r.ID, nil
}

func (s *Store) joined(r domain.Registration) domain.UserRegistration {
	return domain.UserRegistration{Registration: r, EventTitle: s.events[r.EventID].Title}
}

func (s *Store) GetRegistration(_ context.Context, id int64) (domain.UserRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return domain.UserRegistration{}, domain.ErrNotFound
	}
	return s.joined(r), nil
}

func (s *Store) listRegs(keep func(domain.Registration) bool) []domain.UserRegistration {
	var out []domain.UserRegistration
	for _, r := range s.regs {
		if keep(r) {
			out = append(out, s.joined(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Store) ListUserRegistrations(_ context.Context, userID int64) ([]domain.UserRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listRegs(func(r domain.Registration) bool { return r.UserID == userID }), nil
}

func (s *Store) ListPendingRegistrations(context.Context) ([]domain.UserRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listRegs(func(r domain.Registration) bool { return r.Status == domain.RegPending }), nil
}

func (s *Store) ReviewRegistration(_ context.Context, id int64, status domain.RegistrationStatus, reason string, adminID int64, at time.Time) (domain.UserRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return domain.UserRegistration{}, err
	}
	r, ok := s.regs[id]
	if !ok {
		return domain.UserRegistration{}, domain.Ineligible(domain.ReasonNotFound)
	}
	if r.Status != domain.RegPending {
		return s.joined(r), &domain.EligibilityError{Reason: domain.ReasonAlreadyProcessed, Current: string(r.Status)}
	}
	r.Status = status
	r.RejectReason = reason
	r.ProcessedBy = &adminID
	r.ProcessedAt = &at
	s.regs[id] = r
	s.audit(adminID, storage.SetAction(string(status)), "registrations", id, reason, at)
	return s.joined(r), nil
}

func (s *Store) ApprovePending(_ context.Context, eventID, adminID int64, at time.Time) ([]domain.UserRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	if _, ok := s.events[eventID]; !ok {
		return nil, domain.Ineligible(domain.ReasonNotFound)
	}
	var out []domain.UserRegistration
	for id, r := range s.regs {
		if r.EventID != eventID || r.Status != domain.RegPending {
			continue
		}
		by, when := adminID, at
		r.Status = domain.RegApproved
		r.ProcessedBy = &by
		r.ProcessedAt = &when
		s.regs[id] = r
		out = append(out, s.joined(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	for _, r := range out {
		s.audit(adminID, storage.SetAction(string(domain.RegApproved)), "registrations", r.ID, "bulk", at)
	}
	return out, nil
}

// Profiles

func mergeProfile(old, p domain.Profile) domain.Profile {
	if p.StudentID == "" {
		p.StudentID = old.StudentID
	}
	if p.Username == "" {
		p.Username = old.Username
	}
	if p.IsStudent == nil {
		p.IsStudent = old.IsStudent
	}
	return p
}

func (s *Store) GetProfile(_ context.Context, userID int64) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profile[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpsertProfile(_ context.Context, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	s.profile[p.UserID] = mergeProfile(s.profile[p.UserID], p)
	return nil
}

func (s *Store) TouchUser(_ context.Context, userID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	if _, ok := s.profile[userID]; !ok {
		s.profile[userID] = domain.Profile{UserID: userID, Username: username}
	}
	return nil
}

// Audience

func (s *Store) Recipients(_ context.Context, a domain.Audience) ([]int64, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("unknown audience %q", a.Target)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int64]bool{}
	if status, ok := a.RegistrationStatus(); ok {
		for _, r := range s.regs {
			if r.Status == status && (!a.PerEvent() || r.EventID == a.EventID) {
				seen[r.UserID] = true
			}
		}
	} else {
		for id := range s.profile {
			seen[id] = true
		}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Tickets

func (s *Store) CreateTicket(_ context.Context, t domain.Ticket) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return 0, err
	}
	t.ID = s.id()
	t.Status = domain.TicketOpen
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.tickets[t.ID] = t
	return t.ID, nil
}

func (s *Store) GetTicket(_ context.Context, id int64) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.ErrNotFound
	}
	return t, nil
}

func (s *Store) listTickets(keep func(domain.Ticket) bool, newestFirst bool) []domain.Ticket {
	var out []domain.Ticket
	for _, t := range s.tickets {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListUserTickets(_ context.Context, userID int64) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTickets(func(t domain.Ticket) bool { return t.UserID == userID }, true), nil
}

func (s *Store) ListOpenTickets(context.Context) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTickets(func(t domain.Ticket) bool { return t.Status == domain.TicketOpen }, false), nil
}

func (s *Store) ReplyTicket(_ context.Context, id int64, reply string, adminID int64, at time.Time) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return domain.Ticket{}, err
	}
	t, ok := s.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.Ineligible(domain.ReasonNotFound)
	}
	if t.Status != domain.TicketOpen {
		return t, &domain.EligibilityError{Reason: domain.ReasonAlreadyProcessed, Current: string(t.Status)}
	}
	by := adminID
	t.Status = domain.TicketClosed
	t.AdminReply = reply
	t.RepliedBy = &by
	t.RepliedAt = &at
	s.tickets[id] = t
	s.audit(adminID, "reply_ticket", "tickets", id, reply, at)
	return t, nil
}

// FAQs

func (s *Store) ListFAQs(context.Context) ([]domain.FAQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.FAQ, 0, len(s.faqs))
	for _, f := range s.faqs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetFAQ(_ context.Context, id int64) (domain.FAQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.faqs[id]
	if !ok {
		return domain.FAQ{}, domain.ErrNotFound
	}
	return f, nil
}

func (s *Store) SaveFAQ(_ context.Context, f domain.FAQ) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return 0, err
	}
	if f.ID == 0 {
		f.ID = s.id()
	} else if _, ok := s.faqs[f.ID]; !ok {
		return 0, domain.ErrNotFound
	}
	s.faqs[f.ID] = f
	return f.ID, nil
}

func (s *Store) DeleteFAQ(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	if _, ok := s.faqs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.faqs, id)
	return nil
}

// Submissions

func (s *Store) addSubmission(kind domain.SubmissionKind, userID int64, summary, detail, fileID string) int64 {
	id := s.id()
	s.subs[kind][id] = &submissionRow{
		Submission: domain.Submission{
			Kind:    kind,
			ID:      id,
			UserID:  userID,
			Status:  domain.StatusPending,
			Summary: summary,
			Detail:  detail,
			FileID:  fileID,
		},
		createdAt: s.now(),
	}
	return id
}

func (s *Store) CreateIdea(_ context.Context, v domain.Idea) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return 0, err
	}
	v.ID = s.addSubmission(domain.KindIdea, v.UserID, v.Title, v.Description, v.FileID)
	s.ideas[v.ID] = v
	return v.ID, nil
}

func (s *Store) CreateCollaboration(_ context.Context, v domain.Collaboration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return 0, err
	}
	v.ID = s.addSubmission(domain.KindCollab, v.UserID, v.FullName+" | "+v.Organization, v.Proposal, v.FileID)
	s.collabs[v.ID] = v
	return v.ID, nil
}

func (s *Store) CreateDonation(_ context.Context, v domain.Donation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return 0, err
	}
	if v.Currency == "" {
		v.Currency = "IRR"
	}
	v.ID = s.addSubmission(domain.KindDonation, v.UserID, strconv.FormatInt(v.Amount, 10), v.Currency, v.FileID)
	s.donates[v.ID] = v
	return v.ID, nil
}

func (s *Store) CreateMembership(_ context.Context, v domain.Membership, p domain.Profile) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return 0, err
	}
	detail := fmt.Sprintf("%s %s", v.Major, v.EntryYear)
	v.ID = s.addSubmission(domain.KindMembership, v.UserID, v.FullName, detail, v.CardFileID)
	s.members[v.ID] = v
	s.profile[p.UserID] = mergeProfile(s.profile[p.UserID], p)
	return v.ID, nil
}

func (s *Store) GetSubmission(_ context.Context, kind domain.SubmissionKind, id int64) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.subs[kind]
	if !ok {
		return domain.Submission{}, fmt.Errorf("unknown submission kind %q", kind)
	}
	row, ok := rows[id]
	if !ok {
		return domain.Submission{}, domain.ErrNotFound
	}
	return row.Submission, nil
}

func (s *Store) ListPending(_ context.Context, kind domain.SubmissionKind) ([]domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Submission
	for _, row := range s.subs[kind] {
		if row.Status == domain.StatusPending {
			out = append(out, row.Submission)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) Resolve(_ context.Context, d domain.Decision) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return domain.Submission{}, err
	}
	table, err := d.Kind.Table()
	if err != nil {
		return domain.Submission{}, err
	}
	row, ok := s.subs[d.Kind][d.ID]
	if !ok {
		return domain.Submission{}, domain.Ineligible(domain.ReasonNotFound)
	}
	if row.Status != domain.StatusPending {
		return row.Submission, &domain.EligibilityError{Reason: domain.ReasonAlreadyProcessed, Current: string(row.Status)}
	}
	at := d.At
	admin := d.AdminID
	row.Status = d.NewStatus
	row.AdminNote = d.Note
	row.ProcessedBy = &admin
	row.ProcessedAt = &at
	s.audit(d.AdminID, storage.SetAction(string(d.NewStatus)), table, d.ID, d.Note, at)
	return row.Submission, nil
}

// Settings

func (s *Store) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.setting[key]
	return v, ok, nil
}

func (s *Store) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	s.setting[key] = value
	return nil
}

func (s *Store) SeedSettings(_ context.Context, defaults map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range defaults {
		if _, ok := s.setting[k]; !ok {
			s.setting[k] = v
		}
	}
	return nil
}

// Admins

func (s *Store) IsAdmin(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.admins[userID]
	return ok, nil
}

func (s *Store) ListAdmins(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.admins))
	for id := range s.admins {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) AddAdmin(_ context.Context, userID, addedBy int64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[userID]; ok {
		return nil
	}
	by := addedBy
	s.admins[userID] = domain.Admin{UserID: userID, AddedBy: &by, Role: role}
	return nil
}

func (s *Store) RemoveAdmin(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	if _, ok := s.admins[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.admins, userID)
	return nil
}

// Audit

func (s *Store) audit(adminID int64, action, table string, targetID int64, note string, at time.Time) {
	s.actions = append(s.actions, domain.AdminAction{
		ID:          s.id(),
		AdminID:     adminID,
		Action:      action,
		TargetTable: table,
		TargetID:    targetID,
		Note:        note,
		CreatedAt:   at,
	})
}

func (s *Store) RecordAction(_ context.Context, a domain.AdminAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.audit(a.AdminID, a.Action, a.TargetTable, a.TargetID, a.Note, a.CreatedAt)
	return nil
}

func (s *Store) ListActions(_ context.Context, limit int) ([]domain.AdminAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.actions)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.AdminAction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.actions[i])
	}
	return out, nil
}
