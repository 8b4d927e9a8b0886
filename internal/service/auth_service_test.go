package service

import (
	"errors"
	"testing"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/testutil"
	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestAuthenticateUser_NewUser(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	workspaceRepo := testutil.NewMockWorkspaceRepository()
	service := NewAuthService(userRepo, workspaceRepo)

	result, err := service.AuthenticateUser("auth0|12345", "ana@example.com", "Ana Pérez")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !result.IsNewUser {
		t.Error("Expected IsNewUser to be true for new user")
	}
	if result.User.Role != domain.RoleOwner {
		t.Errorf("Expected role owner, got %s", result.User.Role)
	}
	if result.User.Auth0ID == nil || *result.User.Auth0ID != "auth0|12345" {
		t.Errorf("Expected auth0ID to be linked, got %v", result.User.Auth0ID)
	}
	if !result.User.Active {
		t.Error("Expected new owner to be active")
	}
	if result.Workspace == nil || result.Workspace.ID != result.User.WorkspaceID {
		t.Fatal("Expected the owner to belong to the new workspace")
	}
	if result.Workspace.Name != "Ana Pérez" {
		t.Errorf("Expected workspace name 'Ana Pérez', got %s", result.Workspace.Name)
	}
}

func TestAuthenticateUser_NewUserWithoutName(t *testing.T) {
	service := NewAuthService(testutil.NewMockUserRepository(), testutil.NewMockWorkspaceRepository())

	result, err := service.AuthenticateUser("auth0|1", "cobros@example.com", "  ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.User.Name != "cobros" {
		t.Errorf("Expected name derived from email, got %s", result.User.Name)
	}
}

func TestAuthenticateUser_ExistingUser(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	workspaceRepo := testutil.NewMockWorkspaceRepository()
	service := NewAuthService(userRepo, workspaceRepo)

	workspaceRepo.AddWorkspace(&domain.Workspace{ID: 7, Name: "Créditos Ana"})
	existing := userRepo.AddUser(&domain.User{
		WorkspaceID: 7,
		Auth0ID:     strPtr("auth0|existing"),
		Email:       "existing@example.com",
		Name:        "Existing",
		Role:        domain.RoleAdmin,
		Active:      true,
	})

	result, err := service.AuthenticateUser("auth0|existing", "existing@example.com", "Existing")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.IsNewUser {
		t.Error("Expected IsNewUser to be false for existing user")
	}
	if result.User.ID != existing.ID {
		t.Errorf("Expected user %s, got %s", existing.ID, result.User.ID)
	}
	if result.Workspace.ID != 7 {
		t.Errorf("Expected workspace 7, got %d", result.Workspace.ID)
	}
	if len(workspaceRepo.Workspaces) != 1 {
		t.Errorf("Expected no new workspace, got %d workspaces", len(workspaceRepo.Workspaces))
	}
}

func TestAuthenticateUser_LinksInvitedMember(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	workspaceRepo := testutil.NewMockWorkspaceRepository()
	service := NewAuthService(userRepo, workspaceRepo)

	workspaceRepo.AddWorkspace(&domain.Workspace{ID: 3, Name: "Préstamos"})
	invited := userRepo.AddUser(&domain.User{
		WorkspaceID: 3,
		Email:       "Cobrador@Example.com",
		Name:        "Luis",
		Role:        domain.RoleCollector,
		Active:      true,
	})

	result, err := service.AuthenticateUser("auth0|luis", "cobrador@example.com", "Luis G")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.User.ID != invited.ID {
		t.Errorf("Expected invited member to be linked, got %s", result.User.ID)
	}
	if result.User.Auth0ID == nil || *result.User.Auth0ID != "auth0|luis" {
		t.Error("Expected Auth0 ID to be stored on invited member")
	}
	if result.User.Role != domain.RoleCollector {
		t.Errorf("Expected role to be preserved, got %s", result.User.Role)
	}
	if result.IsNewUser {
		t.Error("Expected IsNewUser to be false for invited member")
	}
}

func TestAuthenticateUser_InactiveMember(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	workspaceRepo := testutil.NewMockWorkspaceRepository()
	service := NewAuthService(userRepo, workspaceRepo)

	workspaceRepo.AddWorkspace(&domain.Workspace{ID: 1})
	userRepo.AddUser(&domain.User{
		WorkspaceID: 1,
		Auth0ID:     strPtr("auth0|gone"),
		Email:       "gone@example.com",
		Role:        domain.RoleCollector,
		Active:      false,
	})

	_, err := service.AuthenticateUser("auth0|gone", "gone@example.com", "Gone")
	if !errors.Is(err, domain.ErrUserInactive) {
		t.Errorf("Expected ErrUserInactive, got %v", err)
	}
}

func TestAuthenticateUser_EmailRequiredForNewUser(t *testing.T) {
	service := NewAuthService(testutil.NewMockUserRepository(), testutil.NewMockWorkspaceRepository())

	_, err := service.AuthenticateUser("auth0|x", "", "X")
	if !errors.Is(err, domain.ErrUserEmailRequired) {
		t.Errorf("Expected ErrUserEmailRequired, got %v", err)
	}
}

func TestAuthenticateUser_WorkspaceCreateFails(t *testing.T) {
	workspaceRepo := testutil.NewMockWorkspaceRepository()
	workspaceRepo.CreateFn = func(*domain.Workspace) (*domain.Workspace, error) {
		return nil, errors.New("db down")
	}
	service := NewAuthService(testutil.NewMockUserRepository(), workspaceRepo)

	if _, err := service.AuthenticateUser("auth0|x", "x@example.com", "X"); err == nil {
		t.Error("Expected error when workspace cannot be created")
	}
}

func TestGetMembershipByAuth0ID(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	service := NewAuthService(userRepo, testutil.NewMockWorkspaceRepository())

	member := userRepo.AddUser(&domain.User{
		ID:          uuid.New(),
		WorkspaceID: 4,
		Auth0ID:     strPtr("auth0|m"),
		Role:        domain.RoleCollector,
		Active:      true,
	})

	membership, err := service.GetMembershipByAuth0ID("auth0|m")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if membership.WorkspaceID != 4 || membership.UserID != member.ID || membership.Role != domain.RoleCollector {
		t.Errorf("Unexpected membership %+v", membership)
	}

	if _, err := service.GetMembershipByAuth0ID("auth0|unknown"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	member.Active = false
	if _, err := service.GetMembershipByAuth0ID("auth0|m"); !errors.Is(err, domain.ErrUserInactive) {
		t.Errorf("Expected ErrUserInactive, got %v", err)
	}
}

func TestLookupMember(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	service := NewAuthService(userRepo, testutil.NewMockWorkspaceRepository())

	member := userRepo.AddUser(&domain.User{
		WorkspaceID: 9,
		Auth0ID:     strPtr("auth0|ws"),
		Role:        domain.RoleAdmin,
		Active:      true,
	})

	workspaceID, wsMember, err := service.LookupMember("auth0|ws")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if workspaceID != 9 {
		t.Errorf("Expected workspace 9, got %d", workspaceID)
	}
	if wsMember.UserID != member.ID || !wsMember.IsManager() {
		t.Errorf("Unexpected member %+v", wsMember)
	}
}
