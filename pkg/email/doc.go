// Package email provides the email sink used for the engine's email channel.
//
// EmailSender is the only contract the notification engine depends on. Two
// implementations ship with the package:
//
//   - NewPostmarkClient: production sender backed by Postmark's transactional
//     API.
//   - NewDevSender: development sender that writes each email to disk instead
//     of delivering it.
//
// Message bodies arrive pre-rendered; templating and localization live
// upstream of this package.
package email
