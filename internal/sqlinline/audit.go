package sqlinline

const QInsertMintEvent = `--sql fe94596d-0bd5-46b0-9cc2-4edfbe194374
insert into mint_events(session_id, from_status, to_status, detail)
values ($1, $2, $3, $4);
`
