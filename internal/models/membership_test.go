package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func activeMembership(role MembershipRole) *Membership {
	now := time.Now()
	return &Membership{
		Role:       role,
		Status:     StatusActive,
		AcceptedAt: &now,
	}
}

func TestMembershipPredicates(t *testing.T) {
	t.Run("owner can do everything", func(t *testing.T) {
		m := activeMembership(RoleOwner)
		assert.True(t, m.IsOwner())
		assert.True(t, m.IsActive())
		assert.True(t, m.CanWrite())
		assert.True(t, m.CanManageUsers())
	})

	t.Run("editor writes but does not manage users", func(t *testing.T) {
		m := activeMembership(RoleEditor)
		assert.False(t, m.IsOwner())
		assert.True(t, m.CanWrite())
		assert.False(t, m.CanManageUsers())
	})

	t.Run("viewer only reads", func(t *testing.T) {
		m := activeMembership(RoleViewer)
		assert.True(t, m.IsActive())
		assert.False(t, m.CanWrite())
		assert.False(t, m.CanManageUsers())
	})

	t.Run("invited membership grants nothing", func(t *testing.T) {
		m := activeMembership(RoleOwner)
		m.Status = StatusInvited
		m.AcceptedAt = nil
		assert.False(t, m.IsActive())
		assert.False(t, m.CanWrite())
		assert.False(t, m.CanManageUsers())
	})

	t.Run("soft deleted membership grants nothing", func(t *testing.T) {
		m := activeMembership(RoleOwner)
		now := time.Now()
		m.DeletedAt = &now
		assert.False(t, m.IsActive())
		assert.False(t, m.CanWrite())
		assert.False(t, m.CanManageUsers())
	})
}

func TestMembershipRoleValid(t *testing.T) {
	assert.True(t, RoleOwner.Valid())
	assert.True(t, RoleEditor.Valid())
	assert.True(t, RoleViewer.Valid())
	assert.False(t, MembershipRole("admin").Valid())
	assert.False(t, MembershipRole("").Valid())
}

func TestMembershipPublicFlags(t *testing.T) {
	m := activeMembership(RoleEditor)
	pub := m.Public()
	assert.False(t, pub.IsOwnerFlag)
	assert.True(t, pub.IsActiveFlag)
	assert.True(t, pub.CanWriteFlag)
	assert.False(t, pub.CanManageUsersFlag)
}
