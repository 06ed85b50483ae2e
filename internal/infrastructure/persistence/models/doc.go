// Package models holds the GORM rows behind the storefront repositories.
//
// Each aggregate has a row type with ToDomain and a FromDomain constructor;
// repositories never hand these to the application layer. Money is stored as
// an amount column next to a currency column. JSON columns (product images,
// order address snapshots, ticket attachments, webhook payloads) use
// gorm.io/datatypes. AllModels lists every row type for AutoMigrate in tests;
// production schemas come from the SQL migrations.
package models
