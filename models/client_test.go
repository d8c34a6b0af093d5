package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Мария Иванова", (&ClientProfile{FirstName: "Мария", LastName: "Иванова"}).DisplayName())
	assert.Equal(t, "Мария", (&ClientProfile{FirstName: "Мария"}).DisplayName())
	assert.Equal(t, "masha01", (&ClientProfile{Username: "masha01"}).DisplayName())
	assert.Equal(t, "гость", (&ClientProfile{}).DisplayName())
}

func TestMergeFactsUnions(t *testing.T) {
	c := &ClientProfile{FavoriteServices: []string{"Маникюр"}}
	changed := c.MergeFacts(&ClientFacts{
		FavoriteServices:   []string{"Маникюр", "Стрижка"},
		FavoriteMasters:    []string{"Анна"},
		PreferredTimeSlots: []string{"вечер"},
		Notes:              map[string]string{"аллергия": "гель-лак"},
	})
	assert.True(t, changed)
	assert.Equal(t, []string{"Маникюр", "Стрижка"}, c.FavoriteServices)
	assert.Equal(t, []string{"Анна"}, c.FavoriteMasters)
	assert.Equal(t, "гель-лак", c.Notes["аллергия"])
}

func TestMergeFactsNoChange(t *testing.T) {
	c := &ClientProfile{FavoriteServices: []string{"Маникюр"}}
	assert.False(t, c.MergeFacts(nil))
	assert.False(t, c.MergeFacts(&ClientFacts{FavoriteServices: []string{"Маникюр"}}))
	assert.False(t, c.MergeFacts(&ClientFacts{FavoriteServices: []string{""}}))
}
