// package models defines the data model for the Tautulli stats cache
package models
