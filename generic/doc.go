/*
Package generic holds the building blocks every other package shares.

KEY CONCEPTS:
  - Date: A calendar day at midnight UTC, serialised as YYYY-MM-DD
  - Period: A closed day interval; months, leaves and absences are periods
  - NotFoundError and sentinel input errors
  - AuditLog: The audit trail contract, with an in-memory implementation
    in generic/store

Nothing here knows about rotations or sites; see planning for that.
*/
package generic
